package flow

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"clipforge/internal/shared/clock"
)

// RetryOptions configures Retry.
type RetryOptions struct {
	// MaxRetries is the number of retries after the initial attempt, so
	// a failing operation is called MaxRetries+1 times in total.
	MaxRetries int
	// BaseDelay seeds the exponential backoff: the wait before retry n
	// is min(BaseDelay*2^n + jitter, MaxDelay).
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration
	// ShouldRetry decides whether an error is worth retrying. Nil
	// retries every error.
	ShouldRetry func(error) bool
}

// Retry calls fn until it succeeds, retries are exhausted, ShouldRetry
// declines, or ctx is done. The last error is always surfaced, never
// swallowed. Jitter spreads concurrent retriers so they do not hammer a
// recovering service in lockstep.
func Retry[T any](ctx context.Context, clk clock.Clock, fn func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt >= opts.MaxRetries {
			return zero, lastErr
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			return zero, lastErr
		}

		if err := clk.Sleep(ctx, backoffDelay(opts, attempt)); err != nil {
			return zero, errors.Join(err, lastErr)
		}
	}
}

func backoffDelay(opts RetryOptions, attempt int) time.Duration {
	delay := opts.BaseDelay << uint(attempt)
	if delay < 0 {
		// shifted past the int64 range
		delay = opts.MaxDelay
	}
	if opts.BaseDelay > 0 {
		delay += time.Duration(rand.Int63n(int64(opts.BaseDelay)))
	}
	if opts.MaxDelay > 0 && delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}
	return delay
}
