// Package stats provides draining counters for daily statistics and the
// background task that flushes them into storage.
package stats

import "sync"

// Counter is a process-wide counter that accumulates attempts between
// drains. Increments happen on request paths; Drain is called by exactly
// one background task, which transfers the value into durable storage.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// NewCounter returns a zeroed counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

// Dec undoes a prior Inc after a locally-failed attempt. Floors at zero so
// a decrement racing a drain never drives the counter negative.
func (c *Counter) Dec() {
	c.mu.Lock()
	if c.n > 0 {
		c.n--
	}
	c.mu.Unlock()
}

// Value returns the current count without resetting it.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Drain atomically reads and resets the counter. Concurrent increments
// either land before the drain (and are included) or after (and survive
// for the next one); no increment is counted twice or lost.
func (c *Counter) Drain() int64 {
	c.mu.Lock()
	n := c.n
	c.n = 0
	c.mu.Unlock()
	return n
}
