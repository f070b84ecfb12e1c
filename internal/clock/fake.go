package clock

import "time"

// FakeClock is a Clock whose time only moves when a test advances it.
// Session expiry and rate-limit windows are asserted against it instead
// of the wall clock.
type FakeClock struct {
	current time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
