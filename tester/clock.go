package tester

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is a mock clock for driver tests. Sleep advances virtual time instead of
// blocking, and models that burn CPU time on every sample (the keypad matrix) move it
// forward with Spend.
type Clock struct {
	*clock.Mock
	start time.Time
	spent time.Duration
	slept time.Duration
}

func NewClock() *Clock {
	m := clock.NewMock()
	return &Clock{Mock: m, start: m.Now()}
}

// Sleep advances the mock by d.
func (c *Clock) Sleep(d time.Duration) {
	c.slept += d
	c.Mock.Add(d)
}

// Now includes the time spent polling.
func (c *Clock) Now() time.Time {
	return c.Mock.Now().Add(c.spent)
}

// Spend accounts for d of busy CPU time without running timers.
func (c *Clock) Spend(d time.Duration) {
	c.spent += d
}

// Elapsed returns the virtual time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	return c.Now().Sub(c.start)
}

// Slept returns the total duration passed to Sleep.
func (c *Clock) Slept() time.Duration {
	return c.slept
}
