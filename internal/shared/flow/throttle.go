// Package flow provides call-shaping primitives used to protect
// downstream services from overload: a leading/trailing throttle, a
// trailing debounce, a bounded-concurrency FIFO queue with optional
// dispatch pacing, and an exponential-backoff retry helper.
//
// All primitives take an injected clock.Clock so their timing behavior
// is testable without real timers.
package flow

import (
	"sync"
	"time"

	"clipforge/internal/shared/clock"
)

// Throttle rate-limits a single function. The first call in a quiet
// period invokes fn immediately (leading edge). Calls arriving during
// the cool-down are coalesced into one trailing invocation that fires
// when the cool-down ends, carrying the arguments of the most recent
// call. Superseding calls replace the pending arguments but never
// schedule a second timer.
type Throttle[T, R any] struct {
	mu           sync.Mutex
	clk          clock.Clock
	interval     time.Duration
	fn           func(T) R
	lastInvoked  time.Time
	pendingTimer clock.Timer
	pendingArgs  T
	hasPending   bool
}

// NewThrottle wraps fn so it runs at most once per interval.
func NewThrottle[T, R any](clk clock.Clock, interval time.Duration, fn func(T) R) *Throttle[T, R] {
	return &Throttle[T, R]{
		clk:      clk,
		interval: interval,
		fn:       fn,
	}
}

// Call invokes fn immediately when outside the cool-down and returns
// its result with ok=true. During the cool-down it records args for the
// trailing invocation and returns the zero value with ok=false; the
// trailing result is only observable through fn's side effects.
func (t *Throttle[T, R]) Call(args T) (result R, ok bool) {
	t.mu.Lock()

	now := t.clk.Now()
	elapsed := now.Sub(t.lastInvoked)
	if t.lastInvoked.IsZero() || elapsed >= t.interval {
		t.lastInvoked = now
		fn := t.fn
		t.mu.Unlock()
		return fn(args), true
	}

	t.pendingArgs = args
	if !t.hasPending {
		t.hasPending = true
		t.pendingTimer = t.clk.AfterFunc(t.interval-elapsed, t.fireTrailing)
	}
	t.mu.Unlock()
	return result, false
}

func (t *Throttle[T, R]) fireTrailing() {
	t.mu.Lock()
	if !t.hasPending {
		t.mu.Unlock()
		return
	}
	args := t.pendingArgs
	t.hasPending = false
	t.pendingTimer = nil
	t.lastInvoked = t.clk.Now()
	fn := t.fn
	t.mu.Unlock()

	fn(args)
}

// Pending reports whether a trailing invocation is scheduled.
func (t *Throttle[T, R]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasPending
}

// Cancel drops any scheduled trailing invocation.
func (t *Throttle[T, R]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasPending {
		t.pendingTimer.Stop()
		t.pendingTimer = nil
		t.hasPending = false
	}
}
