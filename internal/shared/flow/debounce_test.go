package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clipforge/internal/shared/clock"
)

func TestDebounce_BurstCollapsesToFinalCall(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	d := NewDebounce(mock, 500*time.Millisecond, func(arg string) {
		rec.record(arg)
	})

	args := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, arg := range args {
		d.Call(arg)
		mock.Add(100 * time.Millisecond)
	}

	assert.Empty(t, rec.snapshot(), "no call fires while the burst continues")

	mock.Add(500 * time.Millisecond)

	assert.Equal(t, []string{"j"}, rec.snapshot(), "only the final call's arguments survive")
}

func TestDebounce_FiresAfterQuietPeriod(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	d := NewDebounce(mock, 500*time.Millisecond, func(arg string) {
		rec.record(arg)
	})

	d.Call("one")
	mock.Add(500 * time.Millisecond)
	assert.Equal(t, []string{"one"}, rec.snapshot())

	d.Call("two")
	mock.Add(499 * time.Millisecond)
	assert.Equal(t, []string{"one"}, rec.snapshot())
	mock.Add(time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, rec.snapshot())
}

func TestDebounce_Cancel(t *testing.T) {
	mock := clock.NewMock()
	rec := &callRecorder{}

	d := NewDebounce(mock, 500*time.Millisecond, func(arg string) {
		rec.record(arg)
	})

	d.Call("dropped")
	d.Cancel()
	assert.False(t, d.Pending())

	mock.Add(time.Second)
	assert.Empty(t, rec.snapshot())
}
