// File: api/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler contract supplying one-shot, rearmable timers and the clock.

package api

import "time"

// TimerHandle is a one-shot timer bound to a handler at creation.
type TimerHandle interface {
	// FireAt arms (or rearms) the timer to invoke its handler at t. Arming
	// an already-armed timer replaces the previous deadline.
	FireAt(t time.Time) error

	// Stop disarms a pending shot. It reports whether a shot was prevented.
	Stop() bool
}

// Scheduler abstracts timer scheduling and the clock for async components.
// Implementations deliver timer callbacks on their own dispatch goroutine.
type Scheduler interface {
	// NewTimer creates an unarmed one-shot timer that invokes h on fire.
	NewTimer(h Handler) (TimerHandle, error)

	// Now returns the scheduler's current time.
	Now() time.Time
}
