package sync

import "time"

// Clock abstracts time so the debouncer and delayed start events are
// deterministic in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f after d and returns a handle that can stop or
	// re-arm it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable, resettable deferred call.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock delegates to the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                 { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }
