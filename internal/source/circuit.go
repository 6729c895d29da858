package source

import (
	"sync"
	"time"
)

// Circuit tracks rate-limit backoff for a single remote.
type Circuit struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

// IsOpen returns the reset time and whether the circuit is open at now.
func (c *Circuit) IsOpen(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

// Open keeps the circuit open until resetAt.
func (c *Circuit) Open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Trip opens the circuit for the duration carried by a rate-limit error.
func (c *Circuit) Trip(err *RateLimitError, now time.Time) {
	c.Open(now.Add(err.RetryAfter))
}
