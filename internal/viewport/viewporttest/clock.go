// Package viewporttest provides deterministic stand-ins for viewport.Platform:
// a manually advanced clock and a scriptable window.
package viewporttest

import (
	"sync"
	"time"

	"kulhadcafe.in/site/internal/viewport"
)

// Clock is a manual viewport.Clock. Timers fire synchronously inside Advance,
// in deadline order, and never on their own.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*timer
	fired  int
}

type timer struct {
	clock   *Clock
	at      time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// NewClock returns a clock positioned at zero.
func NewClock() *Clock {
	return &Clock{}
}

// AfterFunc implements viewport.Clock.
func (c *Clock) AfterFunc(d time.Duration, fn func()) viewport.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &timer{clock: c, at: c.now + d, seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Stop implements viewport.Timer.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.clock.compact()
	return true
}

// Advance moves the clock forward by d, running every timer that falls due.
// Callbacks run without the clock lock held, so they may schedule or stop
// other timers; newly scheduled timers that fall due within d also run.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		c.fired++
		c.compact()
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Now reports the elapsed virtual time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending reports how many timers are scheduled and not yet stopped or fired.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Fired reports how many callbacks have run since the clock was created.
func (c *Clock) Fired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

func (c *Clock) nextDue(target time.Duration) *timer {
	var next *timer
	for _, t := range c.timers {
		if t.at > target {
			continue
		}
		if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (c *Clock) compact() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(c.timers); i++ {
		c.timers[i] = nil
	}
	c.timers = live
}
