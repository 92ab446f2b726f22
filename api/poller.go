// File: api/poller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Poller contract for level-triggered I/O readiness multiplexing.

package api

import "time"

// Poller registers interest in I/O sources and reports currently-ready ones.
//
// Semantics are level-triggered: a source with unconsumed readiness is
// reported again on every subsequent Wait until drained. Add and Remove may
// run concurrently with a blocked Wait; the in-flight Wait observes the
// updated registration table from its next invocation onward.
type Poller interface {
	// Add registers interest in fd. Fails with ErrAlreadyRegistered if the
	// source is already present.
	Add(fd uintptr, interest Ready) error

	// Modify replaces the registered interest set of fd.
	Modify(fd uintptr, interest Ready) error

	// Remove drops the registration of fd.
	Remove(fd uintptr) error

	// Wait blocks until at least one registered source is ready or timeout
	// elapses, appending (source, readiness) pairs to out. timeout == 0 is a
	// non-blocking poll; timeout < 0 blocks indefinitely.
	Wait(out *[]Event, timeout time.Duration) error

	// Close releases the underlying OS resources.
	Close() error
}
