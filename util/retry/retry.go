package retry

import (
	"context"

	"github.com/bitnames/bitnames/ulogger"
)

// Retry calls f until it succeeds, the retry budget is spent or ctx is done. It returns the
// last result and error of f, or the context error when cancelled.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Option) (T, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	var (
		result T
		err    error
	)

	backoff := options.backoffDurationType

	for i := 0; options.infinite || i < options.retryCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = f()
		if err == nil {
			return result, nil
		}

		if options.shouldRetry != nil && !options.shouldRetry(err) {
			return result, err
		}

		if !options.infinite && i == options.retryCount-1 {
			break
		}

		if options.message != "" {
			logger.Warnf("%s (attempt %d): %v", options.message, i+1, err)
		}

		if options.exponential {
			if sleepErr := sleepFunc(ctx, backoff); sleepErr != nil {
				return result, sleepErr
			}

			backoff = CappedExponentialBackoff(backoff, options.backoffFactor, options.maxBackoff)
		} else if sleepErr := BackoffAndSleep(ctx, i, options.backoffMultiplier, options.backoffDurationType); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}
