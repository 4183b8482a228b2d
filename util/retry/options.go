package retry

import "time"

type Options struct {
	retryCount          int
	backoffMultiplier   int
	backoffDurationType time.Duration
	message             string
	infinite            bool
	exponential         bool
	backoffFactor       float64
	maxBackoff          time.Duration
	shouldRetry         func(error) bool
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		retryCount:          3,
		backoffMultiplier:   2,
		backoffDurationType: time.Second,
		backoffFactor:       2.0,
		maxBackoff:          30 * time.Second,
	}
}

func WithRetryCount(count int) Option {
	return func(o *Options) {
		o.retryCount = count
	}
}

func WithBackoffMultiplier(multiplier int) Option {
	return func(o *Options) {
		o.backoffMultiplier = multiplier
	}
}

func WithBackoffDurationType(d time.Duration) Option {
	return func(o *Options) {
		o.backoffDurationType = d
	}
}

func WithMessage(message string) Option {
	return func(o *Options) {
		o.message = message
	}
}

// WithInfiniteRetry keeps retrying until the function succeeds or the context is done.
func WithInfiniteRetry() Option {
	return func(o *Options) {
		o.infinite = true
	}
}

func WithExponentialBackoff() Option {
	return func(o *Options) {
		o.exponential = true
	}
}

func WithBackoffFactor(factor float64) Option {
	return func(o *Options) {
		o.backoffFactor = factor
	}
}

func WithMaxBackoff(d time.Duration) Option {
	return func(o *Options) {
		o.maxBackoff = d
	}
}

// WithRetryableCheck stops retrying as soon as check reports an error as permanent.
func WithRetryableCheck(check func(error) bool) Option {
	return func(o *Options) {
		o.shouldRetry = check
	}
}
