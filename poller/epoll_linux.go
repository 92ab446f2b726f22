//go:build linux

// File: poller/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) poller backend. Level-triggered on purpose: readiness the
// caller has not consumed must be re-reported by the next Wait.

package poller

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
)

const maxEpollEvents = 128

type epollPoller struct {
	mu      sync.Mutex
	epfd    int
	table   map[uintptr]api.Ready
	closed  bool
	metrics *control.MetricsRegistry
}

func newEpollPoller(cfg config) (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("poller: epoll_create1: %w", err)
	}
	return &epollPoller{
		epfd:    epfd,
		table:   make(map[uintptr]api.Ready),
		metrics: cfg.metrics,
	}, nil
}

// epollBits maps an interest set onto epoll input flags. Error readiness is
// implicit in epoll; hangup interest maps to EPOLLRDHUP so a peer half-close
// is observable.
func epollBits(interest api.Ready) uint32 {
	var ev uint32
	if interest.Has(api.ReadyIn) {
		ev |= unix.EPOLLIN
	}
	if interest.Has(api.ReadyOut) {
		ev |= unix.EPOLLOUT
	}
	if interest.Has(api.ReadyPri) {
		ev |= unix.EPOLLPRI
	}
	if interest.Has(api.ReadyHup) {
		ev |= unix.EPOLLRDHUP
	}
	return ev
}

// readyFromEpoll maps epoll output flags back onto the readiness set.
func readyFromEpoll(events uint32) api.Ready {
	var r api.Ready
	if events&unix.EPOLLIN != 0 {
		r |= api.ReadyIn
	}
	if events&unix.EPOLLOUT != 0 {
		r |= api.ReadyOut
	}
	if events&unix.EPOLLPRI != 0 {
		r |= api.ReadyPri
	}
	if events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		r |= api.ReadyHup
	}
	if events&unix.EPOLLERR != 0 {
		r |= api.ReadyErr
	}
	return r
}

func (p *epollPoller) Add(fd uintptr, interest api.Ready) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; ok {
		return api.WrapError(api.ErrCodeAlreadyRegistered, api.ErrAlreadyRegistered,
			"poller: add").WithContext("fd", fd)
	}
	ev := unix.EpollEvent{Events: epollBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl add fd %d: %w", fd, err)
	}
	p.table[fd] = interest
	return nil
}

func (p *epollPoller) Modify(fd uintptr, interest api.Ready) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; !ok {
		return api.WrapError(api.ErrCodeNotRegistered, api.ErrNotRegistered,
			"poller: modify").WithContext("fd", fd)
	}
	ev := unix.EpollEvent{Events: epollBits(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("poller: epoll_ctl mod fd %d: %w", fd, err)
	}
	p.table[fd] = interest
	return nil
}

func (p *epollPoller) Remove(fd uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	if _, ok := p.table[fd]; !ok {
		return api.WrapError(api.ErrCodeNotRegistered, api.ErrNotRegistered,
			"poller: remove").WithContext("fd", fd)
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("poller: epoll_ctl del fd %d: %w", fd, err)
	}
	delete(p.table, fd)
	return nil
}

func (p *epollPoller) Wait(out *[]api.Event, timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return api.ErrPollerClosed
	}
	epfd := p.epfd
	p.mu.Unlock()

	// The blocking multiplex call runs outside the table lock so Add and
	// Remove stay responsive on other goroutines.
	var events [maxEpollEvents]unix.EpollEvent
	ms := timeoutMillis(timeout)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		n, err := unix.EpollWait(epfd, events[:], ms)
		if err == unix.EINTR {
			// Restart with the time left, not the original timeout.
			var retry bool
			if ms, retry = retryMillis(timeout, deadline); !retry {
				return nil
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("poller: epoll_wait: %w", err)
		}
		p.count("poller.epoll.waits", 1)
		p.count("poller.epoll.events", int64(n))
		for i := 0; i < n; i++ {
			*out = append(*out, api.Event{
				FD:    uintptr(events[i].Fd),
				Ready: readyFromEpoll(events[i].Events),
			})
		}
		return nil
	}
}

func (p *epollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrPollerClosed
	}
	p.closed = true
	p.table = nil
	return unix.Close(p.epfd)
}

func (p *epollPoller) count(key string, delta int64) {
	if p.metrics != nil {
		p.metrics.Add(key, delta)
	}
}
