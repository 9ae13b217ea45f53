package scheduler

import "time"

// Clock abstracts time so the scheduler can be driven by a fake clock in
// tests instead of wall-clock timers.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// After waits for the duration to elapse and then delivers the
	// current time on the returned channel
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}
