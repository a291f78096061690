package audit

import (
	"sync"
	"time"
)

// Clock hands out UTC timestamps that never go backwards, even when the
// wall clock does. Timestamps are truncated to microseconds so they survive
// a round trip through PostgreSQL unchanged.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock wraps now; a nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

var processClock = NewClock(time.Now)
