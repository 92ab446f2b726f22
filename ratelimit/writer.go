// File: ratelimit/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ratelimit

import (
	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/task"
)

// LimitedWriter decorates a Writer with token-bucket admission, charging
// after the fact with the byte count the inner write actually accepted.
type LimitedWriter struct {
	inner   Writer
	limiter *Limiter
}

// NewLimitedWriter wraps inner with l.
func NewLimitedWriter(inner Writer, l *Limiter) *LimitedWriter {
	return &LimitedWriter{inner: inner, limiter: l}
}

// Write implements Writer.
func (w *LimitedWriter) Write(t *task.Task, p []byte, opts *api.Options) {
	// Started before linking: a cancel pushed through t must find the inner
	// task running, never ready.
	inner := task.New()
	inner.Start()
	t.AddSubtask(inner)
	inner.OnFinished(api.NewCallback(func() api.Result {
		pay(w.limiter, t, inner, opts)
		return api.OK
	}))
	w.inner.Write(inner, p, opts)
}
