package segment

import (
	"time"
)

// Window is a half-open time interval [Start, Start+Duration) relative to
// capture start, with a monotonically increasing sequence index. Windows are
// never mutated after creation.
type Window struct {
	Index    int
	Start    time.Duration
	Duration time.Duration
}

// End returns the exclusive end offset of the window
func (w Window) End() time.Duration {
	return w.Start + w.Duration
}

// Clock determines segment boundaries on a fixed cadence. It is a pure
// function of the step size and index: deterministic and restartable.
type Clock struct {
	step        time.Duration
	maxDuration time.Duration // 0 = unbounded
}

// NewClock creates a clock with the given step size and total duration bound
func NewClock(step, maxDuration time.Duration) *Clock {
	return &Clock{
		step:        step,
		maxDuration: maxDuration,
	}
}

// Window returns the i-th segment window. When the clock is bounded the
// final window is clamped to the duration bound, since capture stops there
// and audio past the bound never exists.
func (c *Clock) Window(i int) Window {
	start := time.Duration(i) * c.step
	duration := c.step
	if c.maxDuration > 0 && start+duration > c.maxDuration {
		duration = c.maxDuration - start
	}
	return Window{
		Index:    i,
		Start:    start,
		Duration: duration,
	}
}

// Exhausted reports whether the clock has stopped issuing windows at index i.
// A window is issued as long as its start offset falls inside the duration
// bound, so a bound of d yields ceil(d/step) windows. With an unbounded
// duration the clock never stops; cancellation is the caller's job.
func (c *Clock) Exhausted(i int) bool {
	if c.maxDuration == 0 {
		return false
	}
	return time.Duration(i)*c.step >= c.maxDuration
}

// Step returns the clock cadence
func (c *Clock) Step() time.Duration {
	return c.step
}
