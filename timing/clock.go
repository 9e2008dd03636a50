package timing

import "time"

// A Clock can be used to get the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock of the host.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
