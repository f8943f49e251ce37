package common

import "time"

// Clock supplies the monotonically non-decreasing timestamps the ledger reads
// once per operation. Interest and staleness results depend on this value, so
// it is injected rather than read ambiently.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall time.
type SystemClock struct{}

// Now implements the Clock interface.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a settable clock for tests. Set never moves time backwards.
type ManualClock struct {
	current time.Time
}

// NewManualClock starts a manual clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start.UTC()}
}

// Now implements the Clock interface.
func (c *ManualClock) Now() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.current
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if c == nil || d < 0 {
		return
	}
	c.current = c.current.Add(d)
}

// Set moves the clock to ts when ts is not earlier than the current time.
func (c *ManualClock) Set(ts time.Time) {
	if c == nil {
		return
	}
	ts = ts.UTC()
	if ts.Before(c.current) {
		return
	}
	c.current = ts
}
