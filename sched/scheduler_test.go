package sched_test

import (
	"errors"
	"testing"
	"time"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/sched"
)

func TestTimerFires(t *testing.T) {
	s := sched.New()
	defer s.Close()

	done := make(chan struct{})
	tm, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result {
		close(done)
		return api.OK
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := tm.FireAt(s.Now().Add(10 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestRearmReplacesDeadline(t *testing.T) {
	s := sched.New()
	defer s.Close()

	done := make(chan struct{})
	tm, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result {
		close(done)
		return api.OK
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := tm.FireAt(s.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := tm.FireAt(s.Now().Add(5 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rearmed deadline did not replace the old one")
	}
}

func TestStopPreventsShot(t *testing.T) {
	s := sched.New()
	defer s.Close()

	fired := make(chan struct{}, 1)
	tm, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result {
		fired <- struct{}{}
		return api.OK
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := tm.FireAt(s.Now().Add(30 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if !tm.Stop() {
		t.Fatal("Stop on an armed timer must report true")
	}
	if tm.Stop() {
		t.Fatal("second Stop must report false")
	}
	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerOrder(t *testing.T) {
	s := sched.New()
	defer s.Close()

	order := make(chan int, 2)
	mk := func(id int) api.TimerHandle {
		tm, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result {
			order <- id
			return api.OK
		}))
		if err != nil {
			t.Fatal(err)
		}
		return tm
	}
	late, early := mk(2), mk(1)
	now := s.Now()
	if err := late.FireAt(now.Add(40 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := early.FireAt(now.Add(10 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	for want := 1; want <= 2; want++ {
		select {
		case got := <-order:
			if got != want {
				t.Fatalf("fired %d before %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timers did not fire")
		}
	}
}

func TestClosedSchedulerRejectsWork(t *testing.T) {
	s := sched.New()
	tm, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result { return api.OK }))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close() // idempotent

	if err := tm.FireAt(time.Now()); !errors.Is(err, api.ErrSchedulerClosed) {
		t.Fatalf("FireAt after close: %v", err)
	}
	if _, err := s.NewTimer(api.HandlerFunc(func(api.Event) api.Result { return api.OK })); !errors.Is(err, api.ErrSchedulerClosed) {
		t.Fatalf("NewTimer after close: %v", err)
	}
}

func TestNilHandlerRejected(t *testing.T) {
	s := sched.New()
	defer s.Close()
	if _, err := s.NewTimer(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("nil handler: %v", err)
	}
}
