package testfixtures

import (
	"sync"
	"time"
)

// Clock is a hand-driven time source. Services take a `now func() time.Time`
// dependency, so tests advance this clock instead of sleeping.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at the given instant. A zero start falls back to
// the shared ReferenceTime so unrelated tests agree on "now".
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now reports the instant the clock currently points at.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Current is Now under a name that reads better in assertions where no time
// is expected to have passed.
func (c *Clock) Current() time.Time {
	return c.Now()
}

// NowFunc adapts the clock to the `now func() time.Time` shape services
// accept. A nil clock degrades to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}
