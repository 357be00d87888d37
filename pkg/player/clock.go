package player

import (
	"math"
	"time"
)

// Clock arms one-shot timers. The scheduler takes one so tests can drive
// time by hand.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending one-shot callback.
//
// Stop may fail to prevent a callback that is already in flight; the
// scheduler never relies on it and checks a generation number instead.
type Timer interface {
	Stop() bool
}

// RealClock is the wall-clock Clock backed by time.AfterFunc.
type RealClock struct{}

// AfterFunc runs f in its own goroutine after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// secondsToDuration converts a script delay to a timer duration. Delays
// beyond the Duration range (a very low speed) saturate instead of wrapping
// negative.
func secondsToDuration(seconds float64) time.Duration {
	ns := seconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
