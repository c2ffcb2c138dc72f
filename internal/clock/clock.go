// Package clock abstracts timer scheduling so deadline logic can run against
// virtual time in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports false if the timer already fired
	// or was already stopped.
	Stop() bool
}

// Scheduler schedules callbacks and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall-clock Scheduler backed by time.AfterFunc.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Mock is a virtual-time Scheduler. Callbacks fire only from Advance, on the
// calling goroutine, in fire-time order.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*MockTimer
}

// MockTimer is a timer scheduled on a Mock.
type MockTimer struct {
	mock    *Mock
	f       func()
	seq     int
	Delay   time.Duration
	FireAt  time.Time
	stopped bool
	fired   bool
}

// NewMock returns a Mock starting at start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &MockTimer{mock: m, f: f, seq: m.seq, Delay: d, FireAt: m.now.Add(d)}
	m.timers = append(m.timers, t)
	return t
}

func (t *MockTimer) Stop() bool {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.mock.removeLocked(t)
	return true
}

// Pending returns the timers that have neither fired nor been stopped.
func (m *Mock) Pending() []*MockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockTimer, len(m.timers))
	copy(out, m.timers)
	return out
}

// Advance moves virtual time forward by d, firing every timer due on the way.
// Timers scheduled by fired callbacks are honoured if they fall due within d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDueLocked(end)
		if t == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		if t.FireAt.After(m.now) {
			m.now = t.FireAt
		}
		t.fired = true
		m.removeLocked(t)
		m.mu.Unlock()

		t.f()
	}
}

func (m *Mock) nextDueLocked(end time.Time) *MockTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].FireAt.Equal(m.timers[j].FireAt) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].FireAt.Before(m.timers[j].FireAt)
	})
	if t := m.timers[0]; !t.FireAt.After(end) {
		return t
	}
	return nil
}

func (m *Mock) removeLocked(t *MockTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
