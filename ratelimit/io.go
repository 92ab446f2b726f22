// File: ratelimit/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task-based async I/O contracts consumed by the rate-limited decorators.
// Implementations finish the supplied task with the transferred byte count
// in Result.Value, or with a failure/cancelled outcome.

package ratelimit

import (
	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/task"
)

// Reader is an asynchronous byte source. Read fills p with at least min and
// at most len(p) bytes, then finishes t.
type Reader interface {
	Read(t *task.Task, p []byte, min int, opts *api.Options)
}

// Writer is an asynchronous byte sink. Write consumes up to len(p) bytes,
// then finishes t.
type Writer interface {
	Write(t *task.Task, p []byte, opts *api.Options)
}

// Closer tears down an async I/O resource, finishing t when done.
type Closer interface {
	Close(t *task.Task, opts *api.Options)
}

// pay charges the bucket for an inner operation that already completed, then
// hands the inner outcome to the caller's task. Cost is the byte count the
// inner operation actually transferred, so short transfers cost less than
// requested: this is pay-after-transfer, not pre-admission throttling.
// Inner failures and cancellations skip the gate and forward verbatim.
func pay(l *Limiter, t, inner *task.Task, opts *api.Options) {
	if task.ForwardFailure(inner, t) {
		return
	}
	res := inner.Result()
	// The gate starts before it is linked so a cancellation pushed through t
	// can never catch it in the ready state. t itself may settle as cancelled
	// at any point while the gate is parked, so both completion paths go
	// through TryFinish and concede the race.
	gate := task.New()
	gate.Start()
	t.AddSubtask(gate)
	gate.OnFinished(api.NewCallback(func() api.Result {
		if !task.ForwardFailure(gate, t) {
			t.TryFinish(res)
		}
		return api.OK
	}))
	l.Gate(gate, int64(res.Int()), opts)
}
