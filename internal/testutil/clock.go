// Package testutil holds shared test helpers: a stub clock, an in-memory
// migrated store, and library fixture writers.
package testutil

import (
	gosync "sync"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/sync"
)

// StubClock is a manually advanced clock. AfterFunc timers fire when Advance
// moves the clock past their deadline. Safe for concurrent use.
type StubClock struct {
	mu     gosync.Mutex
	now    time.Time
	timers []*stubTimer
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StubClock) AfterFunc(d time.Duration, f func()) sync.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &stubTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every timer whose deadline
// has passed, in deadline order. Callbacks run without the clock lock held.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*stubTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			t.stopped = true
			due = append(due, t)
			continue
		}
		if !t.stopped {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type stubTimer struct {
	clock    *StubClock
	deadline time.Time
	f        func()
	stopped  bool
}

func (t *stubTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *stubTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = false
	t.deadline = t.clock.now.Add(d)
	if was {
		return true
	}
	// A stopped timer re-arms by rejoining the active set.
	t.clock.timers = append(t.clock.timers, t)
	return false
}
