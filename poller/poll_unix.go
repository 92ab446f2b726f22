//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// File: poller/poll_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable poll(2) fallback backend. Behaviorally equivalent to the epoll
// backend; it rebuilds the pollfd set from the registration table on every
// Wait, so table mutations take effect on the next call.

package poller

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
)

type pollPoller struct {
	mu      sync.Mutex
	table   map[uintptr]api.Ready
	closed  bool
	metrics *control.MetricsRegistry
}

func newPollPoller(cfg config) (api.Poller, error) {
	return &pollPoller{
		table:   make(map[uintptr]api.Ready),
		metrics: cfg.metrics,
	}, nil
}

// pollBits maps an interest set onto poll(2) event flags. Hangup and error
// conditions are always delivered by poll regardless of the requested set,
// matching epoll.
func pollBits(interest api.Ready) int16 {
	var ev int16
	if interest.Has(api.ReadyIn) {
		ev |= unix.POLLIN
	}
	if interest.Has(api.ReadyOut) {
		ev |= unix.POLLOUT
	}
	if interest.Has(api.ReadyPri) {
		ev |= unix.POLLPRI
	}
	return ev
}

// readyFromPoll maps poll(2) revents back onto the readiness set.
func readyFromPoll(revents int16) api.Ready {
	var r api.Ready
	if revents&unix.POLLIN != 0 {
		r |= api.ReadyIn
	}
	if revents&unix.POLLOUT != 0 {
		r |= api.ReadyOut
	}
	if revents&unix.POLLPRI != 0 {
		r |= api.ReadyPri
	}
	if revents&unix.POLLHUP != 0 {
		r |= api.ReadyHup
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		r |= api.ReadyErr
	}
	return r
}

func (p *pollPoller) Add(fd uintptr, interest api.Ready) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; ok {
		return api.WrapError(api.ErrCodeAlreadyRegistered, api.ErrAlreadyRegistered,
			"poller: add").WithContext("fd", fd)
	}
	p.table[fd] = interest
	return nil
}

func (p *pollPoller) Modify(fd uintptr, interest api.Ready) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; !ok {
		return api.WrapError(api.ErrCodeNotRegistered, api.ErrNotRegistered,
			"poller: modify").WithContext("fd", fd)
	}
	p.table[fd] = interest
	return nil
}

func (p *pollPoller) Remove(fd uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; !ok {
		return api.WrapError(api.ErrCodeNotRegistered, api.ErrNotRegistered,
			"poller: remove").WithContext("fd", fd)
	}
	delete(p.table, fd)
	return nil
}

func (p *pollPoller) Wait(out *[]api.Event, timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPollerClosed
	}
	fds := make([]uintptr, 0, len(p.table))
	for fd := range p.table {
		fds = append(fds, fd)
	}
	sort.Slice(fds, func(i, j int) bool { return fds[i] < fds[j] })
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: pollBits(p.table[fd])}
	}
	p.mu.Unlock()

	ms := timeoutMillis(timeout)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		n, err := unix.Poll(pfds, ms)
		if err == unix.EINTR {
			// Restart with the time left, not the original timeout.
			var retry bool
			if ms, retry = retryMillis(timeout, deadline); !retry {
				return nil
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("poller: poll: %w", err)
		}
		p.count("poller.poll.waits", 1)
		p.count("poller.poll.events", int64(n))
		if n == 0 {
			return nil
		}
		for i := range pfds {
			if pfds[i].Revents == 0 {
				continue
			}
			*out = append(*out, api.Event{
				FD:    fds[i],
				Ready: readyFromPoll(pfds[i].Revents),
			})
		}
		return nil
	}
}

func (p *pollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	p.closed = true
	p.table = nil
	return nil
}

func (p *pollPoller) count(key string, delta int64) {
	if p.metrics != nil {
		p.metrics.Add(key, delta)
	}
}
