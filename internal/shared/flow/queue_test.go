package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/shared/clock"
)

func waitTask[T any](t *testing.T, task *Task[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestQueue_BoundedConcurrency(t *testing.T) {
	q := NewQueue[int](clock.New(), 2, 0)

	release := make(chan struct{})
	op := func(n int) Operation[int] {
		return func(ctx context.Context) (int, error) {
			<-release
			return n, nil
		}
	}

	t1 := q.Add(context.Background(), op(1))
	t2 := q.Add(context.Background(), op(2))
	t3 := q.Add(context.Background(), op(3))

	assert.Equal(t, 2, q.Active())
	assert.Equal(t, 1, q.Pending())

	close(release)

	v1, err := waitTask(t, t1)
	require.NoError(t, err)
	v2, err := waitTask(t, t2)
	require.NoError(t, err)
	v3, err := waitTask(t, t3)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{1, 2, 3}, []int{v1, v2, v3})
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_FIFODispatchOrder(t *testing.T) {
	q := NewQueue[int](clock.New(), 1, 0)

	var mu sync.Mutex
	var order []int

	gate := make(chan struct{})
	first := q.Add(context.Background(), func(ctx context.Context) (int, error) {
		<-gate
		mu.Lock()
		order = append(order, 0)
		mu.Unlock()
		return 0, nil
	})

	var tasks []*Task[int]
	for i := 1; i <= 3; i++ {
		n := i
		tasks = append(tasks, q.Add(context.Background(), func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return n, nil
		}))
	}

	close(gate)
	_, err := waitTask(t, first)
	require.NoError(t, err)
	for _, task := range tasks {
		_, err := waitTask(t, task)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3}, order, "waiting operations dispatch in submission order")
}

func TestQueue_FailureIsolation(t *testing.T) {
	q := NewQueue[string](clock.New(), 2, 0)

	bad := q.Add(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	good := q.Add(context.Background(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	_, err := waitTask(t, bad)
	assert.Error(t, err)

	v, err := waitTask(t, good)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestQueue_PanicIsolation(t *testing.T) {
	q := NewQueue[string](clock.New(), 1, 0)

	bad := q.Add(context.Background(), func(ctx context.Context) (string, error) {
		panic("unexpected")
	})
	good := q.Add(context.Background(), func(ctx context.Context) (string, error) {
		return "still running", nil
	})

	_, err := waitTask(t, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	v, err := waitTask(t, good)
	require.NoError(t, err)
	assert.Equal(t, "still running", v)
}

func TestQueue_ClearDiscardsUnstarted(t *testing.T) {
	q := NewQueue[int](clock.New(), 1, 0)

	release := make(chan struct{})
	running := q.Add(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	discarded1 := q.Add(context.Background(), func(ctx context.Context) (int, error) {
		return 2, nil
	})
	discarded2 := q.Add(context.Background(), func(ctx context.Context) (int, error) {
		return 3, nil
	})

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Pending())

	close(release)
	v, err := waitTask(t, running)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "in-flight operation runs to completion")

	select {
	case <-discarded1.Done():
		t.Fatal("discarded task must never complete")
	case <-discarded2.Done():
		t.Fatal("discarded task must never complete")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueue_DispatchPacing(t *testing.T) {
	q := NewQueue[int](clock.New(), 1, 30*time.Millisecond)

	var mu sync.Mutex
	var stamps []time.Time

	var tasks []*Task[int]
	for i := 0; i < 3; i++ {
		tasks = append(tasks, q.Add(context.Background(), func(ctx context.Context) (int, error) {
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			return 0, nil
		}))
	}
	for _, task := range tasks {
		_, err := waitTask(t, task)
		require.NoError(t, err)
	}

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 25*time.Millisecond, "dispatches are spaced by the pacing delay")
	}
}
