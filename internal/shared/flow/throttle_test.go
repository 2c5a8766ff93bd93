package flow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/shared/clock"
)

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(arg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, arg)
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestThrottle_LeadingAndTrailing(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	th := NewThrottle(mock, time.Second, func(arg string) int {
		rec.record(arg)
		return len(arg)
	})

	result, ok := th.Call("first")
	require.True(t, ok)
	assert.Equal(t, 5, result)

	_, ok = th.Call("second")
	assert.False(t, ok)
	_, ok = th.Call("third")
	assert.False(t, ok)

	assert.Equal(t, []string{"first"}, rec.snapshot())
	assert.True(t, th.Pending())

	mock.Add(time.Second)

	assert.Equal(t, []string{"first", "third"}, rec.snapshot(), "trailing call uses the last arguments")
	assert.False(t, th.Pending())
}

func TestThrottle_ImmediateAfterCoolDown(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	th := NewThrottle(mock, time.Second, func(arg string) struct{} {
		rec.record(arg)
		return struct{}{}
	})

	_, ok := th.Call("a")
	require.True(t, ok)

	mock.Add(time.Second)

	_, ok = th.Call("b")
	assert.True(t, ok, "call after the cool-down fires immediately")
	assert.Equal(t, []string{"a", "b"}, rec.snapshot())
}

func TestThrottle_TrailingThenThrottledAgain(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	th := NewThrottle(mock, time.Second, func(arg string) struct{} {
		rec.record(arg)
		return struct{}{}
	})

	th.Call("lead")
	th.Call("pending")
	mock.Add(time.Second)

	// The trailing invocation resets the cool-down.
	_, ok := th.Call("too-soon")
	assert.False(t, ok)
	assert.Equal(t, []string{"lead", "pending"}, rec.snapshot())

	mock.Add(time.Second)
	assert.Equal(t, []string{"lead", "pending", "too-soon"}, rec.snapshot())
}

func TestThrottle_Cancel(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	th := NewThrottle(mock, time.Second, func(arg string) struct{} {
		rec.record(arg)
		return struct{}{}
	})

	th.Call("lead")
	th.Call("dropped")
	th.Cancel()

	mock.Add(2 * time.Second)
	assert.Equal(t, []string{"lead"}, rec.snapshot())
}
