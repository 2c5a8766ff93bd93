package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clipforge/internal/shared/clock"
)

// Operation is a unit of work submitted to a Queue.
type Operation[T any] func(ctx context.Context) (T, error)

// Task tracks the outcome of a submitted operation.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed once the operation has completed. Tasks discarded by
// Queue.Clear are never completed; callers must treat that as "never
// executed", not as an error.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the operation completes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-t.done:
		return t.value, t.err
	}
}

func (t *Task[T]) complete(value T, err error) {
	t.value = value
	t.err = err
	close(t.done)
}

type queueItem[T any] struct {
	ctx  context.Context
	op   Operation[T]
	task *Task[T]
}

// Queue runs submitted operations with bounded parallelism. Waiting
// operations dispatch in FIFO order; completion order is unconstrained.
// When delayBetween is positive the queue waits that long after each
// completion before dispatching the next waiting operation, pacing the
// downstream service rather than merely limiting concurrency.
//
// One operation's failure never affects its siblings.
type Queue[T any] struct {
	mu            sync.Mutex
	clk           clock.Clock
	maxConcurrent int
	delayBetween  time.Duration
	waiting       []*queueItem[T]
	active        int
}

// NewQueue creates a queue running at most maxConcurrent operations at
// once. maxConcurrent values below 1 are treated as 1.
func NewQueue[T any](clk clock.Clock, maxConcurrent int, delayBetween time.Duration) *Queue[T] {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue[T]{
		clk:           clk,
		maxConcurrent: maxConcurrent,
		delayBetween:  delayBetween,
	}
}

// Add submits op. It starts immediately when a slot is free, otherwise
// it joins the FIFO backlog.
func (q *Queue[T]) Add(ctx context.Context, op Operation[T]) *Task[T] {
	item := &queueItem[T]{
		ctx:  ctx,
		op:   op,
		task: &Task[T]{done: make(chan struct{})},
	}

	q.mu.Lock()
	if q.active < q.maxConcurrent {
		q.active++
		q.mu.Unlock()
		go q.run(item)
	} else {
		q.waiting = append(q.waiting, item)
		q.mu.Unlock()
	}
	return item.task
}

// Pending returns the number of operations waiting for a slot.
func (q *Queue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Active returns the number of operations currently running.
func (q *Queue[T]) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Clear discards every operation that has not started. Their tasks are
// never completed. In-flight operations run to completion.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.waiting)
	q.waiting = nil
	return n
}

func (q *Queue[T]) run(item *queueItem[T]) {
	value, err := q.invoke(item)
	item.task.complete(value, err)
	q.dispatchNext()
}

// invoke executes the operation with panic isolation so one misbehaving
// task cannot take down its siblings.
func (q *Queue[T]) invoke(item *queueItem[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued operation panicked: %v", r)
		}
	}()
	return item.op(item.ctx)
}

func (q *Queue[T]) dispatchNext() {
	q.mu.Lock()
	if len(q.waiting) == 0 {
		q.active--
		q.mu.Unlock()
		return
	}
	// Keep the slot reserved for the next waiting item so a pacing
	// delay cannot be overtaken by a fresh Add.
	next := q.waiting[0]
	q.waiting = q.waiting[1:]
	delay := q.delayBetween
	q.mu.Unlock()

	if delay > 0 {
		q.clk.Sleep(context.Background(), delay)
	}
	q.run(next)
}
