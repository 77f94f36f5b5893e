package engine

import "time"

// Clock is the monotonic time source the engine reads and arms deadlines on.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once d has elapsed, unless the returned Timer is
	// stopped first.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is an armed deadline handle.
type Timer interface {
	// Stop disarms the timer. It returns false if the timer already fired or
	// was already stopped.
	Stop() bool
}

type systemClock struct{}

// SystemClock returns a Clock backed by the runtime's monotonic clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
