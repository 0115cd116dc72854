package engine

import "time"

// Clock supplies event timestamps. Injected so tests can pin them.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// StepClock is a deterministic test clock that advances by a fixed step on
// every reading, so consecutive events get strictly increasing timestamps.
type StepClock struct {
	t    time.Time
	step time.Duration
}

// NewStepClock creates a StepClock starting at start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{t: start, step: step}
}

// Now returns the current reading and advances the clock.
func (c *StepClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}
