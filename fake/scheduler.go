// File: fake/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-async/api"
)

// Scheduler is an api.Scheduler with a manual clock. Time only moves when
// Advance is called; due timers fire synchronously on the advancing
// goroutine, in deadline order, with the clock parked on each deadline.
type Scheduler struct {
	mu          sync.Mutex
	now         time.Time
	timers      []*fakeTimer
	newTimerErr error
	fireAtErr   error
}

// NewScheduler starts the clock at start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Now implements api.Scheduler.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// NewTimer implements api.Scheduler.
func (s *Scheduler) NewTimer(h api.Handler) (api.TimerHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newTimerErr != nil {
		return nil, s.newTimerErr
	}
	t := &fakeTimer{s: s, h: h}
	s.timers = append(s.timers, t)
	return t, nil
}

// FailNewTimer makes subsequent NewTimer calls return err (nil restores).
func (s *Scheduler) FailNewTimer(err error) {
	s.mu.Lock()
	s.newTimerErr = err
	s.mu.Unlock()
}

// FailFireAt makes subsequent FireAt calls return err (nil restores).
func (s *Scheduler) FailFireAt(err error) {
	s.mu.Lock()
	s.fireAtErr = err
	s.mu.Unlock()
}

// Armed returns the number of timers currently armed.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.armed {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls inside the advanced span. Handlers run without the scheduler lock
// and may rearm timers; rearmed deadlines inside the span fire too.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range s.timers {
			if !t.armed || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.when.After(s.now) {
			s.now = next.when
		}
		next.armed = false
		h := next.h
		s.mu.Unlock()
		h.Handle(api.Event{})
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

type fakeTimer struct {
	s     *Scheduler
	h     api.Handler
	when  time.Time
	armed bool
}

func (t *fakeTimer) FireAt(when time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.fireAtErr != nil {
		return t.s.fireAtErr
	}
	t.when = when
	t.armed = true
	return nil
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.armed {
		return false
	}
	t.armed = false
	return true
}
