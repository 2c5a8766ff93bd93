// Package clock abstracts the monotonic time source so components with
// timing behavior can be tested against a controllable clock instead of
// real wall-clock timers.
package clock

import (
	"context"
	"time"
)

// Timer is a handle to a pending AfterFunc invocation.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
	// Reset reschedules the timer to fire after d. It reports whether
	// the timer was still pending when rescheduled.
	Reset(d time.Duration) bool
}

// Clock is the time source used by all timing-sensitive components.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}

func (r realTimer) Reset(d time.Duration) bool {
	return r.t.Reset(d)
}
