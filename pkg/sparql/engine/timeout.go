package engine

import (
	"sync"
	"time"
)

type executionClock struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	end     time.Time
	running bool
	timeout int64
	expired *QueryTimeoutError
}

func (t *executionClock) elapsed() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	if t.running {
		return t.now().Sub(t.start)
	}
	return t.end.Sub(t.start)
}

// EffectiveTimeout returns the timeout in milliseconds to apply given the
// query's own timeout and the global maximum; zero means no limit. The
// query timeout applies when positive and within the maximum, otherwise
// the maximum applies.
func EffectiveTimeout(queryTimeout, maxTimeout int64) int64 {
	if queryTimeout > 0 && (maxTimeout <= 0 || queryTimeout <= maxTimeout) {
		return queryTimeout
	}
	if maxTimeout > 0 {
		return maxTimeout
	}
	return 0
}

// StartExecution fixes the effective timeout and starts the execution timer.
// It has no effect once the context has timed out.
func (c *Context) StartExecution(maxTimeout int64) {
	var queryTimeout int64
	if c.query != nil {
		queryTimeout = c.query.Timeout
	}

	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()
	if c.clock.expired != nil {
		return
	}
	c.clock.timeout = EffectiveTimeout(queryTimeout, maxTimeout)
	c.clock.start = c.clock.now()
	c.clock.running = true
}

// EndExecution stops the execution timer
func (c *Context) EndExecution() {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()
	if c.clock.running {
		c.clock.end = c.clock.now()
		c.clock.running = false
	}
}

// Elapsed returns the time spent since StartExecution, up to EndExecution
func (c *Context) Elapsed() time.Duration {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()
	return c.clock.elapsed()
}

// Timeout returns the effective timeout in milliseconds, zero for none
func (c *Context) Timeout() int64 {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()
	return c.clock.timeout
}

// CheckTimeout fails with a *QueryTimeoutError once the elapsed time exceeds
// the effective timeout. After the first failure the timer is stopped and
// every later check fails the same way.
func (c *Context) CheckTimeout() error {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()

	if c.clock.expired != nil {
		return c.clock.expired
	}
	if c.clock.timeout <= 0 {
		return nil
	}

	limit := time.Duration(c.clock.timeout) * time.Millisecond
	elapsed := c.clock.elapsed()
	if elapsed <= limit {
		return nil
	}

	if c.clock.running {
		c.clock.end = c.clock.now()
		c.clock.running = false
	}
	c.clock.expired = &QueryTimeoutError{Limit: limit, Elapsed: elapsed}
	c.logger.V(1).Info("query timed out", "limit", limit, "elapsed", elapsed)
	return c.clock.expired
}

// RemainingTimeout returns the milliseconds left before the timeout, at
// least 1 while a timeout is set, or 0 when there is no limit
func (c *Context) RemainingTimeout() int64 {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()

	if c.clock.timeout <= 0 {
		return 0
	}
	remaining := c.clock.timeout - c.clock.elapsed().Milliseconds()
	if remaining < 1 {
		return 1
	}
	return remaining
}

// check is the nil-tolerant form of CheckTimeout used by the multiset operations
func (c *Context) check() error {
	if c == nil {
		return nil
	}
	return c.CheckTimeout()
}
