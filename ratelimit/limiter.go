// File: ratelimit/limiter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/control"
	"github.com/momentics/hioload-async/task"
)

// pending is one queued admission request.
type pending struct {
	t         *task.Task
	remaining int64
	opts      *api.Options
}

// Limiter is a token-bucket admission controller.
//
// The bucket holds up to burst tokens and earns rate tokens per window.
// Earned credit is computed lazily on every drain as ceil(rate*elapsed/window)
// and capped at burst. The very first drain never earns credit, so a limiter
// that sat idle since construction cannot hand out an unbounded initial
// grant.
type Limiter struct {
	window time.Duration
	rate   int64
	burst  int64

	mu         sync.Mutex
	bank       int64
	lastRefill time.Time
	primed     bool
	pendingQ   *queue.Queue
	timer      api.TimerHandle
	armGen     uint64

	sched   api.Scheduler
	metrics *control.MetricsRegistry
}

// Option customizes limiter construction.
type Option func(*Limiter)

// WithMetrics publishes grant/queue counters to reg.
func WithMetrics(reg *control.MetricsRegistry) Option {
	return func(l *Limiter) { l.metrics = reg }
}

// New constructs a limiter earning rate tokens per window with capacity
// burst. burst must be at least rate; timers come from sched.
func New(sched api.Scheduler, window time.Duration, rate, burst int64, opts ...Option) (*Limiter, error) {
	if sched == nil {
		return nil, fmt.Errorf("ratelimit: nil scheduler: %w", api.ErrInvalidArgument)
	}
	if window <= 0 || rate < 1 || burst < rate {
		return nil, fmt.Errorf("ratelimit: window=%v rate=%d burst=%d: %w",
			window, rate, burst, api.ErrInvalidArgument)
	}
	l := &Limiter{
		window:   window,
		rate:     rate,
		burst:    burst,
		pendingQ: queue.New(),
		sched:    sched,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Gate enqueues an admission request of the given cost on behalf of t and
// drains the queue. t must be running; it finishes OK once the request is
// granted, or with a failure result if the grant timer cannot be armed.
//
// Cancelling t while it is parked in the queue does not evict it: the
// request stays queued until naturally granted or dropped by a timer
// failure.
func (l *Limiter) Gate(t *task.Task, cost int64, opts *api.Options) {
	if t == nil {
		panic("hioload-async: ratelimit gate on nil task")
	}
	if cost < 0 {
		panic("hioload-async: ratelimit gate with negative cost")
	}
	l.mu.Lock()
	l.pendingQ.Add(&pending{t: t, remaining: cost, opts: opts})
	l.mu.Unlock()
	l.count("ratelimit.queued", 1)
	l.pump()
}

// GateSync is the blocking convenience around Gate: it drives an internal
// task through the gate and returns its outcome.
func (l *Limiter) GateSync(cost int64, opts *api.Options) api.Result {
	t := task.New()
	t.Start()
	l.Gate(t, cost, opts)
	return t.Wait()
}

// Queued returns the number of requests currently parked in the queue.
func (l *Limiter) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingQ.Length()
}

// Bank returns the current token balance.
func (l *Limiter) Bank() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bank
}

// pump runs the drain algorithm: replenish, grant head-first while the bank
// covers the head, then debit the bank into the new head and arm the timer
// for the moment the head becomes affordable. Bookkeeping happens under the
// limiter lock; task completions and the timer call run outside it so a
// completion listener may re-enter the limiter.
func (l *Limiter) pump() {
	for {
		now := l.sched.Now()

		l.mu.Lock()
		l.refillLocked(now)
		var grants []*task.Task
		for l.pendingQ.Length() > 0 {
			head := l.pendingQ.Peek().(*pending)
			if l.bank < head.remaining {
				break
			}
			l.bank -= head.remaining
			l.pendingQ.Remove()
			grants = append(grants, head.t)
		}
		arm := false
		var deadline time.Time
		var gen uint64
		if l.pendingQ.Length() > 0 {
			head := l.pendingQ.Peek().(*pending)
			head.remaining -= l.bank
			l.bank = 0
			deadline = now.Add(l.payoffDelay(head.remaining))
			l.armGen++
			gen = l.armGen
			arm = true
		}
		timer := l.timer
		l.mu.Unlock()

		l.count("ratelimit.granted", int64(len(grants)))
		for _, g := range grants {
			// A task cancelled while parked stays queued (no eviction) and
			// still consumes its slot; TryFinish concedes if it settled.
			g.TryFinish(api.OK)
		}
		if !arm {
			return
		}

		if timer == nil {
			created, err := l.sched.NewTimer(api.HandlerFunc(l.onTimer))
			if err != nil {
				if l.failHead(err) {
					continue
				}
				return
			}
			l.mu.Lock()
			if l.timer == nil {
				l.timer = created
			}
			timer = l.timer
			l.mu.Unlock()
		}
		// A pump that recomputed the head deadline after this one owns the
		// rearm; firing a stale, later deadline here would delay the grant.
		l.mu.Lock()
		stale := gen != l.armGen
		l.mu.Unlock()
		if stale {
			return
		}
		if err := timer.FireAt(deadline); err != nil {
			if l.failHead(err) {
				continue
			}
			return
		}
		return
	}
}

// refillLocked credits tokens earned since the last refill. Held under l.mu.
func (l *Limiter) refillLocked(now time.Time) {
	if !l.primed {
		// First use: record the epoch without earning, otherwise the whole
		// time since construction would turn into credit.
		l.primed = true
		l.lastRefill = now
		return
	}
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	win := int64(l.window)
	earned := (l.rate*int64(elapsed) + win - 1) / win
	l.bank += earned
	if l.bank > l.burst {
		l.bank = l.burst
	}
	l.lastRefill = now
}

// payoffDelay returns how long the head must wait for remaining tokens.
func (l *Limiter) payoffDelay(remaining int64) time.Duration {
	return time.Duration(int64(l.window) * remaining / l.rate)
}

// failHead drops the queue head after a timer-scheduling failure and
// finishes its task with that failure. The failure is terminal for that one
// request only; it reports whether more requests remain to process.
func (l *Limiter) failHead(err error) bool {
	l.mu.Lock()
	if l.pendingQ.Length() == 0 {
		l.mu.Unlock()
		return false
	}
	head := l.pendingQ.Remove().(*pending)
	more := l.pendingQ.Length() > 0
	l.mu.Unlock()
	l.count("ratelimit.timer_failures", 1)
	fail := api.WrapError(api.ErrCodeInternal, err, "ratelimit: arm grant timer").
		WithContext("cost", head.remaining)
	head.t.TryFinish(api.Failure(fail))
	return more
}

func (l *Limiter) onTimer(api.Event) api.Result {
	l.pump()
	return api.OK
}

func (l *Limiter) count(key string, delta int64) {
	if l.metrics != nil && delta != 0 {
		l.metrics.Add(key, delta)
	}
}
