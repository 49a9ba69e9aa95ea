package sync_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/sync"
	"github.com/kafky-yu/eagle-pics-server/internal/testutil"
)

func TestDebouncerFiresOnceAfterQuietPeriod(t *testing.T) {
	clock := testutil.FixedClock()
	var fires atomic.Int32
	d := sync.NewDebouncer(time.Second, clock, func() { fires.Add(1) })

	// A burst of touches inside the quiet period collapses to one fire.
	d.Touch()
	clock.Advance(400 * time.Millisecond)
	d.Touch()
	clock.Advance(400 * time.Millisecond)
	d.Touch()

	if got := fires.Load(); got != 0 {
		t.Fatalf("fired %d times before quiet period elapsed", got)
	}
	if !d.Pending() {
		t.Fatal("debouncer should be pending after touches")
	}

	clock.Advance(time.Second)
	if got := fires.Load(); got != 1 {
		t.Fatalf("fired %d times, want exactly 1", got)
	}
	if d.Pending() {
		t.Error("debouncer should be idle after firing")
	}
}

func TestDebouncerTouchAfterFireArmsAgain(t *testing.T) {
	clock := testutil.FixedClock()
	var fires atomic.Int32
	d := sync.NewDebouncer(time.Second, clock, func() { fires.Add(1) })

	d.Touch()
	clock.Advance(time.Second)
	d.Touch()
	clock.Advance(time.Second)

	if got := fires.Load(); got != 2 {
		t.Fatalf("fired %d times, want 2", got)
	}
}

func TestDebouncerStopCancelsPendingFire(t *testing.T) {
	clock := testutil.FixedClock()
	var fires atomic.Int32
	d := sync.NewDebouncer(time.Second, clock, func() { fires.Add(1) })

	d.Touch()
	d.Stop()
	clock.Advance(2 * time.Second)

	if got := fires.Load(); got != 0 {
		t.Fatalf("fired %d times after Stop, want 0", got)
	}
}
