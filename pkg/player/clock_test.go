package player

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock. When leaky is set, Stop reports
// success but the timer still fires, like a callback that was already in
// flight.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
	leaky  bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	if !t.clock.leaky {
		t.stopped = true
	}
	return active
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of timers that would still fire.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireNext fires the earliest timer due at or before target and moves the
// clock to its deadline. It reports false when no timer is due.
func (c *fakeClock) fireNext(target time.Duration) bool {
	c.mu.Lock()
	var next *fakeTimer
	for _, t := range c.timers {
		if t.stopped || t.fired || t.at > target {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	if next == nil {
		c.mu.Unlock()
		return false
	}
	next.fired = true
	if next.at > c.now {
		c.now = next.at
	}
	c.mu.Unlock()

	next.f()
	return true
}

func (c *fakeClock) setNow(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > c.now {
		c.now = d
	}
}
