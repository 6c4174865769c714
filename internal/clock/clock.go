// Package clock supplies the time source behind the connection heartbeat.
package clock

import "time"

// Clock abstracts time-related functions for easier testing.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real implements Clock using the standard library.
type Real struct{}

// Now returns the current time. The monotonic reading is kept, so deadline
// comparisons are immune to wall clock steps.
func (Real) Now() time.Time {
	return time.Now()
}

// After mirrors time.After while satisfying the Clock interface.
func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
