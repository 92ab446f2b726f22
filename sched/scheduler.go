// File: sched/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-async/api"
)

// entry is one armed shot in the timer queue.
type entry struct {
	when      time.Time
	seq       uint64
	tm        *timer
	cancelled bool
}

type timerQueue []*entry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) { *q = append(*q, x.(*entry)) }

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler dispatches one-shot timers from a dedicated goroutine.
type Scheduler struct {
	mu     sync.Mutex
	timers timerQueue
	seq    uint64
	closed bool

	notify chan struct{}
	stop   chan struct{}
}

// New starts a scheduler. Close releases its dispatch goroutine.
func New() *Scheduler {
	s := &Scheduler{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Now implements api.Scheduler.
func (s *Scheduler) Now() time.Time { return time.Now() }

// NewTimer implements api.Scheduler. The returned handle starts unarmed.
func (s *Scheduler) NewTimer(h api.Handler) (api.TimerHandle, error) {
	if h == nil {
		return nil, fmt.Errorf("sched: nil handler: %w", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, api.ErrSchedulerClosed
	}
	return &timer{s: s, h: h}, nil
}

// Close stops the dispatch loop. Armed timers never fire afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *Scheduler) kick() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		now := time.Now()
		var due []*entry
		for len(s.timers) > 0 {
			e := s.timers[0]
			if e.cancelled {
				heap.Pop(&s.timers)
				continue
			}
			if e.when.After(now) {
				break
			}
			heap.Pop(&s.timers)
			e.tm.entry = nil
			due = append(due, e)
		}
		next := time.Duration(0)
		hasNext := len(s.timers) > 0
		if hasNext {
			next = time.Until(s.timers[0].when)
		}
		s.mu.Unlock()

		// Handlers run without the scheduler lock so they may rearm their
		// own or other timers.
		for _, e := range due {
			e.tm.h.Handle(api.Event{})
		}

		if !hasNext {
			select {
			case <-s.notify:
			case <-s.stop:
				return
			}
			continue
		}
		t := time.NewTimer(next)
		select {
		case <-t.C:
		case <-s.notify:
			t.Stop()
		case <-s.stop:
			t.Stop()
			return
		}
	}
}

// timer is a rearmable one-shot timer handle.
type timer struct {
	s *Scheduler
	h api.Handler
	// entry is the armed shot, if any; guarded by s.mu.
	entry *entry
}

// FireAt implements api.TimerHandle.
func (t *timer) FireAt(when time.Time) error {
	s := t.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.ErrSchedulerClosed
	}
	if t.entry != nil {
		t.entry.cancelled = true
		t.entry = nil
	}
	s.seq++
	e := &entry{when: when, seq: s.seq, tm: t}
	t.entry = e
	heap.Push(&s.timers, e)
	s.mu.Unlock()
	s.kick()
	return nil
}

// Stop implements api.TimerHandle.
func (t *timer) Stop() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.entry == nil {
		return false
	}
	t.entry.cancelled = true
	t.entry = nil
	return true
}
