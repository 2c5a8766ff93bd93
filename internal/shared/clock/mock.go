package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when Add is called. Timers
// scheduled via AfterFunc fire synchronously, in deadline order, while
// the mock advances past their deadlines.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

// NewMock returns a Mock positioned at the Unix epoch.
func NewMock() *Mock {
	return &Mock{now: time.Unix(0, 0).UTC()}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTimer{
		mock:     m,
		deadline: m.now.Add(d),
		fn:       fn,
	}
	m.timers = append(m.timers, t)
	return t
}

func (m *Mock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := m.AfterFunc(d, func() { close(done) })
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Add advances the mock clock by d, firing every pending timer whose
// deadline falls within the advanced interval.
func (m *Mock) Add(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.mu.Lock()
		if t.deadline.After(m.now) {
			m.now = t.deadline
		}
		m.mu.Unlock()
		t.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest unstopped timer due at or before target.
func (m *Mock) nextDue(target time.Time) *mockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.timers, func(i, j int) bool {
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})
	for i, t := range m.timers {
		if t.stopped {
			continue
		}
		if t.deadline.After(target) {
			return nil
		}
		t.stopped = true
		m.timers = append(m.timers[:i], m.timers[i+1:]...)
		return t
	}
	return nil
}

type mockTimer struct {
	mock     *Mock
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *mockTimer) Stop() bool {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *mockTimer) Reset(d time.Duration) bool {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	wasPending := !t.stopped
	t.stopped = false
	t.deadline = t.mock.now.Add(d)
	if !wasPending {
		t.mock.timers = append(t.mock.timers, t)
	}
	return wasPending
}
