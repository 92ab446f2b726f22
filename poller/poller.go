// File: poller/poller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backend selection and shared plumbing for the readiness pollers.

package poller

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
)

// Backend identifies a poller implementation.
type Backend int

const (
	// BackendAuto picks the best backend available on this platform.
	BackendAuto Backend = iota
	// BackendEpoll is the Linux epoll(7) implementation.
	BackendEpoll
	// BackendPoll is the portable poll(2) fallback.
	BackendPoll
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendEpoll:
		return "epoll"
	case BackendPoll:
		return "poll"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Option customizes poller construction.
type Option func(*config)

type config struct {
	metrics *control.MetricsRegistry
}

// WithMetrics publishes wait/event counters to reg.
func WithMetrics(reg *control.MetricsRegistry) Option {
	return func(c *config) { c.metrics = reg }
}

// New constructs a poller using the requested backend.
func New(b Backend, opts ...Option) (api.Poller, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	switch b {
	case BackendAuto:
		if p, err := newEpollPoller(cfg); err == nil {
			return p, nil
		}
		return newPollPoller(cfg)
	case BackendEpoll:
		return newEpollPoller(cfg)
	case BackendPoll:
		return newPollPoller(cfg)
	default:
		return nil, fmt.Errorf("poller: backend %v: %w", b, api.ErrInvalidArgument)
	}
}

// timeoutMillis converts the Wait timeout contract to milliseconds for the
// OS multiplex calls: <0 blocks indefinitely, 0 is a non-blocking poll, and
// small positive timeouts round up so they never degrade to non-blocking.
func timeoutMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	default:
		ms := int(d / time.Millisecond)
		if time.Duration(ms)*time.Millisecond < d {
			ms++
		}
		if ms == 0 {
			ms = 1
		}
		return ms
	}
}

// retryMillis computes the timeout for restarting a signal-interrupted
// multiplex call: indefinite and non-blocking waits restart as they were,
// while a timed wait restarts with the time left until its deadline and
// gives up once that deadline has passed.
func retryMillis(timeout time.Duration, deadline time.Time) (int, bool) {
	if timeout < 0 {
		return -1, true
	}
	if timeout == 0 {
		return 0, true
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return 0, false
	}
	return timeoutMillis(remaining), true
}
