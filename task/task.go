// File: task/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-async/api"
)

// State enumerates the lifecycle states of a Task.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateCancelling
	StateFinishing
	StateDone
	StateCancelled
)

var stateNames = [...]string{
	StateReady:      "ready",
	StateRunning:    "running",
	StateCancelling: "cancelling",
	StateFinishing:  "finishing",
	StateDone:       "done",
	StateCancelled:  "cancelled",
}

// String returns the lowercase state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Task represents one asynchronous operation.
//
// All fields are guarded by a lock private to the instance; state transitions
// and the result assignment happen under that lock, while listener bodies run
// after it is released, so a listener may safely re-enter the same Task
// (for example to Reset it).
type Task struct {
	mu        sync.Mutex
	state     State
	result    api.Result
	parent    *Task
	children  map[*Task]struct{}
	listeners []*api.Callback
}

// New constructs a Task in the ready state.
func New() *Task { return &Task{state: StateReady} }

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsFinished reports whether the task reached a terminal state.
func (t *Task) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateDone || t.state == StateCancelled
}

// IsCancelling reports whether cancellation was requested but the operation
// has not finished yet.
func (t *Task) IsCancelling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateCancelling
}

// Result returns the stored outcome. Calling it before the task finished is
// a contract violation and panics.
func (t *Task) Result() api.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateDone && t.state != StateCancelled {
		panic(fmt.Sprintf("hioload-async: task result read in state %v", t.state))
	}
	return t.result
}

// Start moves the task from ready to running. Panics if the task is not
// ready.
func (t *Task) Start() {
	t.mu.Lock()
	if t.state != StateReady {
		s := t.state
		t.mu.Unlock()
		panic(fmt.Sprintf("hioload-async: task started in state %v", s))
	}
	t.state = StateRunning
	t.mu.Unlock()
}

// Finish completes the task with res. Legal from running, or from cancelling
// when the operation raced cancellation to normal completion. The task lands
// in the done state.
func (t *Task) Finish(res api.Result) {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StateCancelling {
		s := t.state
		t.mu.Unlock()
		panic(fmt.Sprintf("hioload-async: task finished in state %v", s))
	}
	t.state = StateFinishing
	listeners, parent := t.settleLocked(res, StateDone)
	t.mu.Unlock()
	t.notify(listeners, parent)
}

// FinishOK completes the task successfully.
func (t *Task) FinishOK() { t.Finish(api.OK) }

// TryFinish completes the task with res unless it already reached a terminal
// state, reporting whether it did. This is the completion primitive for code
// that may lose a race against cooperative cancellation: Finish treats a
// finished task as a contract violation, TryFinish treats it as the other
// side having settled first and drops res. Calling it on a never-started
// task still panics.
func (t *Task) TryFinish(res api.Result) bool {
	t.mu.Lock()
	switch t.state {
	case StateDone, StateCancelled:
		t.mu.Unlock()
		return false
	case StateReady:
		t.mu.Unlock()
		panic("hioload-async: task finished in state ready")
	}
	t.state = StateFinishing
	listeners, parent := t.settleLocked(res, StateDone)
	t.mu.Unlock()
	t.notify(listeners, parent)
	return true
}

// FinishCancel completes a cancelling task with the cancelled outcome. The
// driving logic calls it once it observes that no live subtasks remain.
func (t *Task) FinishCancel() {
	t.mu.Lock()
	if t.state != StateCancelling {
		s := t.state
		t.mu.Unlock()
		panic(fmt.Sprintf("hioload-async: task cancel-finished in state %v", s))
	}
	t.state = StateFinishing
	listeners, parent := t.settleLocked(api.Cancelled, StateCancelled)
	t.mu.Unlock()
	t.notify(listeners, parent)
}

// Cancel requests cooperative cancellation and reports whether the task is
// now fully cancelled.
//
// A running task with no live subtasks completes synchronously with the
// cancelled outcome. A running task with live subtasks moves to cancelling,
// pushes Cancel to every live subtask, and returns false; the caller's own
// driving logic must still observe its operation winding down and call
// FinishCancel (or Finish, if the work completed anyway). A ready task is
// cancelled immediately. Cancelling a finished task is a no-op that reports
// true.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	switch t.state {
	case StateReady:
		listeners, parent := t.settleLocked(api.Cancelled, StateCancelled)
		t.mu.Unlock()
		t.notify(listeners, parent)
		return true
	case StateRunning:
		if len(t.children) == 0 {
			t.state = StateCancelling
			listeners, parent := t.settleLocked(api.Cancelled, StateCancelled)
			t.mu.Unlock()
			t.notify(listeners, parent)
			return true
		}
		t.state = StateCancelling
		live := make([]*Task, 0, len(t.children))
		for c := range t.children {
			live = append(live, c)
		}
		t.mu.Unlock()
		for _, c := range live {
			c.Cancel()
		}
		return false
	case StateCancelling, StateFinishing:
		t.mu.Unlock()
		return false
	default: // done, cancelled
		t.mu.Unlock()
		return true
	}
}

// AddSubtask registers child as a live subtask of t. The link is liveness
// bookkeeping only: the parent pushes cancellation to live children, and a
// child's completion removes it from the set. Nothing propagates a child's
// completion into finishing the parent. Adding an already-finished child is
// a no-op; re-parenting a live child panics.
func (t *Task) AddSubtask(child *Task) {
	if child == t {
		panic("hioload-async: task added as its own subtask")
	}
	child.mu.Lock()
	if child.state == StateDone || child.state == StateCancelled {
		child.mu.Unlock()
		return
	}
	if child.parent != nil {
		child.mu.Unlock()
		panic("hioload-async: subtask already has a parent")
	}
	child.parent = t
	child.mu.Unlock()

	t.mu.Lock()
	if t.children == nil {
		t.children = make(map[*Task]struct{})
	}
	t.children[child] = struct{}{}
	t.mu.Unlock()
}

// LiveSubtasks returns the number of registered subtasks that have not
// finished yet.
func (t *Task) LiveSubtasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.children)
}

// OnFinished registers cb to fire when the task finishes. Callbacks fire
// exactly once each, in registration order. Registering on an already
// finished task invokes cb immediately and synchronously.
func (t *Task) OnFinished(cb *api.Callback) {
	t.mu.Lock()
	if t.state == StateDone || t.state == StateCancelled {
		t.mu.Unlock()
		cb.Invoke()
		return
	}
	t.listeners = append(t.listeners, cb)
	t.mu.Unlock()
}

// Wait blocks the calling goroutine until the task finishes and returns its
// result. This is the one blocking convenience on Task; everything else
// completes on whatever goroutine drives the operation.
func (t *Task) Wait() api.Result {
	done := make(chan struct{})
	t.OnFinished(api.NewCallback(func() api.Result {
		close(done)
		return api.OK
	}))
	<-done
	return t.Result()
}

// Reset returns a finished task to the ready state, clearing its result,
// listener list and subtask membership so the instance can be reused.
func (t *Task) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateDone && t.state != StateCancelled {
		panic(fmt.Sprintf("hioload-async: task reset in state %v", t.state))
	}
	t.state = StateReady
	t.result = api.Result{}
	t.listeners = nil
	t.children = nil
}

// settleLocked records the outcome and terminal state and strips the fields
// the caller must act on after releasing the lock. The transient finishing
// state set by the caller is confined to the critical section, so externally
// the task jumps straight to its terminal state.
func (t *Task) settleLocked(res api.Result, terminal State) ([]*api.Callback, *Task) {
	t.result = res
	t.state = terminal
	listeners := t.listeners
	t.listeners = nil
	parent := t.parent
	t.parent = nil
	return listeners, parent
}

// notify detaches the task from its parent's live set and fires listeners,
// all outside the task lock.
func (t *Task) notify(listeners []*api.Callback, parent *Task) {
	if parent != nil {
		parent.removeChild(t)
	}
	for _, cb := range listeners {
		cb.Invoke()
	}
}

func (t *Task) removeChild(child *Task) {
	t.mu.Lock()
	delete(t.children, child)
	t.mu.Unlock()
}
