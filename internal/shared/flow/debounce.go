package flow

import (
	"sync"
	"time"

	"clipforge/internal/shared/clock"
)

// Debounce delays fn until delay has elapsed with no further calls.
// Every call cancels the previous pending invocation and reschedules
// with its own arguments, so only the final call of a burst runs.
type Debounce[T any] struct {
	mu           sync.Mutex
	clk          clock.Clock
	delay        time.Duration
	fn           func(T)
	pendingTimer clock.Timer
	pendingArgs  T
	hasPending   bool
}

// NewDebounce wraps fn so it only runs after a quiet period of delay.
func NewDebounce[T any](clk clock.Clock, delay time.Duration, fn func(T)) *Debounce[T] {
	return &Debounce[T]{
		clk:   clk,
		delay: delay,
		fn:    fn,
	}
}

// Call schedules fn with args after the configured delay, replacing any
// previously scheduled invocation.
func (d *Debounce[T]) Call(args T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pendingArgs = args
	if d.hasPending {
		d.pendingTimer.Reset(d.delay)
		return
	}
	d.hasPending = true
	d.pendingTimer = d.clk.AfterFunc(d.delay, d.fire)
}

func (d *Debounce[T]) fire() {
	d.mu.Lock()
	if !d.hasPending {
		d.mu.Unlock()
		return
	}
	args := d.pendingArgs
	d.hasPending = false
	d.pendingTimer = nil
	fn := d.fn
	d.mu.Unlock()

	fn(args)
}

// Pending reports whether an invocation is scheduled.
func (d *Debounce[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

// Cancel drops any scheduled invocation.
func (d *Debounce[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasPending {
		d.pendingTimer.Stop()
		d.pendingTimer = nil
		d.hasPending = false
	}
}
