package types

import "time"

// Clock abstracts time for testability. Scheduler, state machine, and gate
// logic take a Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
