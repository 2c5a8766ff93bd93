package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/shared/clock"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "done", nil
	}

	value, err := Retry(context.Background(), clock.New(), fn, RetryOptions{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, "done", value)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionSurfacesLastError(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("failure %d", calls)
	}

	_, err := Retry(context.Background(), clock.New(), fn, RetryOptions{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "maxRetries+1 total calls")
	assert.EqualError(t, err, "failure 3", "the last error wins")
}

func TestRetry_ShouldRetryGatesByErrorClass(t *testing.T) {
	type statusError struct {
		error
		status int
	}
	retryable := func(err error) bool {
		var se statusError
		if errors.As(err, &se) {
			return se.status >= 500
		}
		return true
	}

	t.Run("client errors stop immediately", func(t *testing.T) {
		calls := 0
		fn := func(ctx context.Context) (int, error) {
			calls++
			return 0, statusError{error: errors.New("bad request"), status: 400}
		}

		_, err := Retry(context.Background(), clock.New(), fn, RetryOptions{
			MaxRetries:  3,
			BaseDelay:   time.Millisecond,
			ShouldRetry: retryable,
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("server errors retry to exhaustion", func(t *testing.T) {
		calls := 0
		fn := func(ctx context.Context) (int, error) {
			calls++
			return 0, statusError{error: errors.New("upstream unavailable"), status: 503}
		}

		_, err := Retry(context.Background(), clock.New(), fn, RetryOptions{
			MaxRetries:  3,
			BaseDelay:   time.Millisecond,
			ShouldRetry: retryable,
		})

		require.Error(t, err)
		assert.Equal(t, 4, calls)
	})
}

func TestRetry_ContextCancellationAbortsBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("always failing")
	}

	_, err := Retry(ctx, clock.New(), fn, RetryOptions{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelay_GrowsAndCaps(t *testing.T) {
	opts := RetryOptions{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for attempt := 0; attempt < 10; attempt++ {
		delay := backoffDelay(opts, attempt)
		floor := opts.BaseDelay << uint(attempt)
		if floor > opts.MaxDelay || floor < 0 {
			floor = opts.MaxDelay
		}
		assert.GreaterOrEqual(t, delay, min(floor, opts.MaxDelay))
		assert.LessOrEqual(t, delay, opts.MaxDelay)
	}
}
