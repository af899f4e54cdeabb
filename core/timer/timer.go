// Package timer abstracts delayed callbacks so the checkout lifecycle can run
// against the wall clock in production and against a manual clock in tests.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Handle cancels a scheduled callback.
type Handle interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs callbacks after a delay and exposes the clock it measures
// delays against.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Handle
}

// Wall schedules callbacks with time.AfterFunc.
type Wall struct{}

// NewWall returns the wall-clock scheduler.
func NewWall() Wall { return Wall{} }

// Now returns the current time.
func (Wall) Now() time.Time { return time.Now() }

// AfterFunc schedules fn on its own goroutine after d.
func (Wall) AfterFunc(d time.Duration, fn func()) Handle {
	return time.AfterFunc(d, fn)
}

// Manual is a deterministic scheduler. Callbacks only run from Advance, in
// deadline order, on the goroutine calling Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	when    time.Time
	seq     uint64
	fn      func()
	stopped bool
}

// NewManual returns a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock reading.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to run once the clock reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{owner: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Stop implements Handle.
func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.owner.remove(t)
	return true
}

func (m *Manual) remove(t *manualTimer) {
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, firing every callback that falls due.
// Callbacks scheduled by fired callbacks run too when they fall inside the
// window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].when.Equal(m.timers[j].when) {
				return m.timers[i].seq < m.timers[j].seq
			}
			return m.timers[i].when.Before(m.timers[j].when)
		})
		if len(m.timers) == 0 || m.timers[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.timers[0]
		m.timers = m.timers[1:]
		next.stopped = true
		if next.when.After(m.now) {
			m.now = next.when
		}
		m.mu.Unlock()
		next.fn()
	}
}

// Pending reports how many callbacks are still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
