package timer

import (
	"slices"
	"sync"
	"time"
)

// Manual is a [Clock] driven by explicit calls to [Manual.Advance].
// It exists for tests that need to observe timer behavior without sleeping.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	queue []*manualTimer
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

// NewManual creates a manual clock reading the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current time.
func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn to run when the clock advances past d from now.
func (c *Manual) AfterFunc(d time.Duration, fn func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), seq: c.seq, fn: fn}
	c.seq++
	c.queue = append(c.queue, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		was := t.stopped
		t.stopped = true
		return !was
	}
}

// Advance moves the clock forward by d, running every timer that comes due
// in time order. Callbacks run on the calling goroutine and may schedule
// further timers, which also fire if they come due within the advance.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	for {
		t := c.dueLocked(end)
		if t == nil {
			break
		}
		if t.at.After(c.now) {
			c.now = t.at
		}
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}
	c.now = end
	c.mu.Unlock()
}

// dueLocked pops the earliest unfired timer due by end, or nil.
// The clock's mutex must be held during the call.
func (c *Manual) dueLocked(end time.Time) *manualTimer {
	k := -1
	for i, t := range c.queue {
		if t.stopped || t.at.After(end) {
			continue
		}
		if k < 0 || t.at.Before(c.queue[k].at) || (t.at.Equal(c.queue[k].at) && t.seq < c.queue[k].seq) {
			k = i
		}
	}
	if k < 0 {
		return nil
	}
	t := c.queue[k]
	t.stopped = true
	c.queue = slices.Delete(c.queue, k, k+1)
	return t
}
