// File: api/callback.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One-shot completion callbacks and reusable event handlers.

package api

import "sync/atomic"

// Callback is a single-shot completion closure. It owns its captured state
// exclusively and is consumed by its one invocation. Invoking a Callback a
// second time is a contract violation and panics.
type Callback struct {
	fn    func() Result
	fired atomic.Bool
}

// NewCallback wraps fn into a one-shot Callback. fn must not be nil.
func NewCallback(fn func() Result) *Callback {
	if fn == nil {
		panic("hioload-async: nil callback function")
	}
	return &Callback{fn: fn}
}

// Invoke runs the wrapped function and consumes the callback.
func (c *Callback) Invoke() Result {
	if c.fired.Swap(true) {
		panic("hioload-async: callback invoked twice")
	}
	fn := c.fn
	c.fn = nil
	return fn()
}

// Fired reports whether the callback has already been consumed.
func (c *Callback) Fired() bool { return c.fired.Load() }

// Handler processes events. Implementations must be safe for concurrent
// invocation from independent goroutines and may run any number of times.
type Handler interface {
	Handle(ev Event) Result
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ev Event) Result

// Handle implements Handler.
func (f HandlerFunc) Handle(ev Event) Result { return f(ev) }
