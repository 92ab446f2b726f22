// File: api/readiness.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// I/O readiness bitmask and the event record delivered by pollers.

package api

import "strings"

// Ready is a bitmask of I/O readiness conditions.
type Ready uint8

const (
	// ReadyIn: data available for reading.
	ReadyIn Ready = 1 << iota
	// ReadyOut: writing will not block.
	ReadyOut
	// ReadyPri: urgent/out-of-band data pending.
	ReadyPri
	// ReadyHup: peer shutdown or half-close.
	ReadyHup
	// ReadyErr: device or socket error condition.
	ReadyErr
)

// Has reports whether all bits in mask are set.
func (r Ready) Has(mask Ready) bool { return r&mask == mask }

// String renders the set as "in|out|pri|hup|err", or "none" when empty.
func (r Ready) String() string {
	if r == 0 {
		return "none"
	}
	parts := make([]string, 0, 5)
	for _, f := range [...]struct {
		bit  Ready
		name string
	}{
		{ReadyIn, "in"},
		{ReadyOut, "out"},
		{ReadyPri, "pri"},
		{ReadyHup, "hup"},
		{ReadyErr, "err"},
	} {
		if r&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Event is one readiness record returned by a poller Wait call: the
// registered source it arrived on and the conditions currently pending.
type Event struct {
	FD    uintptr
	Ready Ready
}
