package sync

import (
	gosync "sync"
	"time"
)

// Debouncer is a trailing-edge debounce timer modeled as an explicit state
// machine: idle, or pending with a deadline. Every Touch pushes the deadline
// out by the quiet period; the fire callback runs once the deadline passes
// with no further touches.
type Debouncer struct {
	quiet time.Duration
	clock Clock
	fire  func()

	mu       gosync.Mutex
	timer    Timer
	deadline time.Time
}

// NewDebouncer creates a debouncer that invokes fire after quiet elapses
// without a Touch. fire runs on the timer goroutine.
func NewDebouncer(quiet time.Duration, clock Clock, fire func()) *Debouncer {
	return &Debouncer{quiet: quiet, clock: clock, fire: fire}
}

// Touch records activity: idle → pending(now+quiet), pending → deadline reset.
func (d *Debouncer) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deadline = d.clock.Now().Add(d.quiet)
	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.quiet, d.onDeadline)
		return
	}
	d.timer.Reset(d.quiet)
}

// Pending reports whether a flush is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any scheduled fire and returns to idle.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) onDeadline() {
	d.mu.Lock()
	// A Touch may have raced the timer firing; re-arm instead of firing early.
	if remaining := d.deadline.Sub(d.clock.Now()); remaining > 0 {
		d.timer = d.clock.AfterFunc(remaining, d.onDeadline)
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fire()
}
