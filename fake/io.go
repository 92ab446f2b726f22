// File: fake/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"io"
	"sync"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/task"
)

// Reader completes reads synchronously from scripted chunks, one chunk per
// Read call. A short chunk produces a short read. Once the script is
// exhausted, reads finish with io.EOF (or the error set via Fail).
type Reader struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
}

// NewReader scripts the given chunks.
func NewReader(chunks ...[]byte) *Reader {
	return &Reader{chunks: chunks}
}

// Fail sets the terminal error delivered after the script runs out.
func (r *Reader) Fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Read implements ratelimit.Reader.
func (r *Reader) Read(t *task.Task, p []byte, min int, opts *api.Options) {
	r.mu.Lock()
	if len(r.chunks) == 0 {
		err := r.err
		if err == nil {
			err = io.EOF
		}
		r.mu.Unlock()
		t.TryFinish(api.Failure(err))
		return
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	r.mu.Unlock()
	n := copy(p, chunk)
	t.TryFinish(api.ValueOf(n))
}

// Writer accepts at most acceptPerCall bytes per Write (0 means all),
// completing each task synchronously with the accepted count.
type Writer struct {
	mu     sync.Mutex
	accept int
	writes [][]byte
}

// NewWriter builds a writer that accepts at most acceptPerCall bytes per
// call.
func NewWriter(acceptPerCall int) *Writer {
	return &Writer{accept: acceptPerCall}
}

// Write implements ratelimit.Writer.
func (w *Writer) Write(t *task.Task, p []byte, opts *api.Options) {
	n := len(p)
	w.mu.Lock()
	if w.accept > 0 && n > w.accept {
		n = w.accept
	}
	w.writes = append(w.writes, append([]byte(nil), p[:n]...))
	w.mu.Unlock()
	t.TryFinish(api.ValueOf(n))
}

// Written concatenates every accepted byte in write order.
func (w *Writer) Written() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []byte
	for _, chunk := range w.writes {
		out = append(out, chunk...)
	}
	return out
}
