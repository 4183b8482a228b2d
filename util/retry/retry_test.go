package retry

import (
	"context"
	"testing"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/util/test/mocklogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	logger := mocklogger.NewTestLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	successFn := func() (string, error) {
		return "success", nil
	}

	staticCallCount := 0
	retryOnceFn := func() (string, error) {
		if staticCallCount == 0 {
			staticCallCount++
			return "", errors.NewProcessingError("error")
		}

		return "success", nil
	}

	result, err := Retry(ctx, logger, successFn,
		WithRetryCount(3),
		WithBackoffMultiplier(2),
		WithBackoffDurationType(100*time.Millisecond),
		WithMessage("Trying again"),
	)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	logger.AssertNumberOfCalls(t, "Warnf", 0)
	logger.Reset()

	result, err = Retry(ctx, logger, retryOnceFn,
		WithBackoffDurationType(time.Millisecond),
		WithMessage("Trying again"),
	)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	logger.AssertNumberOfCalls(t, "Warnf", 1)
	logger.Reset()

	staticCallCount = 0
	result, err = Retry(ctx, logger, retryOnceFn,
		WithInfiniteRetry(),
		WithExponentialBackoff(),
		WithBackoffDurationType(10*time.Millisecond),
		WithBackoffFactor(2.0),
		WithMaxBackoff(100*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
}

func TestRetryExhausted(t *testing.T) {
	logger := mocklogger.NewTestLogger()

	calls := 0
	alwaysFailFn := func() (int, error) {
		calls++
		return calls, errors.NewNetworkError("persistent error")
	}

	result, err := Retry(context.Background(), logger, alwaysFailFn,
		WithRetryCount(3),
		WithBackoffDurationType(time.Millisecond),
		WithMessage("retrying"),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNetwork))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result)

	// no warning after the final attempt
	logger.AssertNumberOfCalls(t, "Warnf", 2)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	fn := func() (struct{}, error) {
		calls++
		return struct{}{}, errors.NewTxMalformedError("bad")
	}

	_, err := Retry(context.Background(), mocklogger.NewTestLogger(), fn,
		WithRetryCount(5),
		WithBackoffDurationType(time.Millisecond),
		WithRetryableCheck(errors.IsRetryableError),
	)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Retry(ctx, mocklogger.NewTestLogger(), func() (string, error) {
		return "", errors.NewProcessingError("persistent error")
	},
		WithInfiniteRetry(),
		WithExponentialBackoff(),
		WithBackoffDurationType(10*time.Millisecond),
	)
	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestCappedExponentialBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, time.Second, CappedExponentialBackoff(600*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, 150*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 1.5, time.Second))
}

func TestBackoffAndSleep(t *testing.T) {
	t.Run("completes sleep successfully", func(t *testing.T) {
		start := time.Now()
		err := BackoffAndSleep(context.Background(), 1, 1, 10*time.Millisecond)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns early when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := BackoffAndSleep(ctx, 10, 10, time.Second)
		assert.Equal(t, context.Canceled, err)
	})
}
