// File: api/result.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic operation result and cancellation outcome.

package api

import "errors"

// ErrCancelled is the terminal outcome of a cancelled operation. It is
// reachable only through the Cancel/FinishCancel path of a task.
var ErrCancelled = errors.New("operation cancelled")

// Result wraps an operation outcome: an optional payload and an error.
// I/O operations report the transferred byte count through Value.
type Result struct {
	Value any
	Err   error
}

// OK is the zero, successful result.
var OK = Result{}

// Cancelled is the result carried by every cancelled operation.
var Cancelled = Result{Err: ErrCancelled}

// Failure wraps an operational error into a Result.
func Failure(err error) Result { return Result{Err: err} }

// ValueOf wraps a payload into a successful Result.
func ValueOf(v any) Result { return Result{Value: v} }

// IsCancelled reports whether the result marks a cancelled operation.
func (r Result) IsCancelled() bool { return errors.Is(r.Err, ErrCancelled) }

// Int returns the payload as an int, or 0 when it is absent or untyped.
// Readers and writers store transferred byte counts this way.
func (r Result) Int() int {
	n, _ := r.Value.(int)
	return n
}
