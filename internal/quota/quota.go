// Package quota tracks daily request consumption against the provider's
// per-key limit. A Counter is scoped to a single run; the calendar-day
// reset happens outside the process.
package quota

import "sync/atomic"

// DefaultDailyLimit is the provider's per-key request cap.
const DefaultDailyLimit = 40000

// Counter is a shared, atomically incremented request counter. The zero
// value is not usable; construct with New.
type Counter struct {
	limit int64
	used  atomic.Int64
}

// New returns a Counter with the given daily limit. A non-positive limit
// falls back to DefaultDailyLimit.
func New(limit int64) *Counter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Counter{limit: limit}
}

// Acquire reserves one request slot. It returns false without consuming
// anything when the limit is already reached.
func (c *Counter) Acquire() bool {
	for {
		cur := c.used.Load()
		if cur >= c.limit {
			return false
		}
		if c.used.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Used returns the number of requests consumed so far.
func (c *Counter) Used() int64 {
	return c.used.Load()
}

// Remaining returns how many requests may still be issued.
func (c *Counter) Remaining() int64 {
	rem := c.limit - c.used.Load()
	if rem < 0 {
		return 0
	}
	return rem
}

// Exhausted reports whether the limit has been reached.
func (c *Counter) Exhausted() bool {
	return c.used.Load() >= c.limit
}

// Limit returns the configured daily limit.
func (c *Counter) Limit() int64 {
	return c.limit
}
