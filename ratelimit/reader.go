// File: ratelimit/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ratelimit

import (
	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/task"
)

// LimitedReader decorates a Reader with token-bucket admission. The inner
// read runs first; the bucket is then debited with the bytes actually read
// before the caller's task completes.
type LimitedReader struct {
	inner   Reader
	limiter *Limiter
}

// NewLimitedReader wraps inner with l.
func NewLimitedReader(inner Reader, l *Limiter) *LimitedReader {
	return &LimitedReader{inner: inner, limiter: l}
}

// Read implements Reader.
func (r *LimitedReader) Read(t *task.Task, p []byte, min int, opts *api.Options) {
	// Started before linking: a cancel pushed through t must find the inner
	// task running, never ready.
	inner := task.New()
	inner.Start()
	t.AddSubtask(inner)
	inner.OnFinished(api.NewCallback(func() api.Result {
		pay(r.limiter, t, inner, opts)
		return api.OK
	}))
	r.inner.Read(inner, p, min, opts)
}
