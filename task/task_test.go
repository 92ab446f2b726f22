package task_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-async/api"
	"github.com/momentics/hioload-async/task"
)

func counter(n *int) *api.Callback {
	return api.NewCallback(func() api.Result {
		*n++
		return api.OK
	})
}

func mustPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", what)
		}
	}()
	fn()
}

func TestInlineLifecycle(t *testing.T) {
	tk := task.New()
	if got := tk.State(); got != task.StateReady {
		t.Fatalf("new task state = %v", got)
	}
	fired := 0
	tk.OnFinished(counter(&fired))
	tk.Start()
	if got := tk.State(); got != task.StateRunning {
		t.Fatalf("started task state = %v", got)
	}
	tk.FinishOK()
	if !tk.IsFinished() {
		t.Fatal("task not finished after FinishOK")
	}
	if res := tk.Result(); res.Err != nil {
		t.Fatalf("unexpected result error: %v", res.Err)
	}
	if fired != 1 {
		t.Fatalf("listener fired %d times, want 1", fired)
	}
	// Late registration fires immediately and synchronously.
	tk.OnFinished(counter(&fired))
	if fired != 2 {
		t.Fatalf("late listener: fired = %d, want 2", fired)
	}
}

func TestListenerOrder(t *testing.T) {
	tk := task.New()
	tk.Start()
	var order []int
	for i := 0; i < 4; i++ {
		i := i
		tk.OnFinished(api.NewCallback(func() api.Result {
			order = append(order, i)
			return api.OK
		}))
	}
	tk.FinishOK()
	for i, got := range order {
		if got != i {
			t.Fatalf("listener order %v, want registration order", order)
		}
	}
	if len(order) != 4 {
		t.Fatalf("fired %d listeners, want 4", len(order))
	}
}

func TestContractViolationsPanic(t *testing.T) {
	tk := task.New()
	mustPanic(t, "result before finish", func() { tk.Result() })
	tk.Start()
	mustPanic(t, "double start", func() { tk.Start() })
	mustPanic(t, "reset while running", func() { tk.Reset() })
	mustPanic(t, "finish-cancel while running", func() { tk.FinishCancel() })
	tk.FinishOK()
	mustPanic(t, "double finish", func() { tk.FinishOK() })
}

func TestFinishWithFailure(t *testing.T) {
	errBoom := errors.New("boom")
	tk := task.New()
	tk.Start()
	tk.Finish(api.Failure(errBoom))
	if got := tk.State(); got != task.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	if !errors.Is(tk.Result().Err, errBoom) {
		t.Fatalf("result error = %v, want boom", tk.Result().Err)
	}
}

func TestCancelLeaf(t *testing.T) {
	tk := task.New()
	tk.Start()
	if !tk.Cancel() {
		t.Fatal("leaf cancel must complete synchronously")
	}
	if got := tk.State(); got != task.StateCancelled {
		t.Fatalf("state = %v, want cancelled", got)
	}
	if !tk.Result().IsCancelled() {
		t.Fatalf("result = %+v, want cancelled", tk.Result())
	}
}

func TestCancelReadyTask(t *testing.T) {
	tk := task.New()
	if !tk.Cancel() {
		t.Fatal("cancelling a ready task must complete synchronously")
	}
	if got := tk.State(); got != task.StateCancelled {
		t.Fatalf("state = %v, want cancelled", got)
	}
}

func TestCancelFinishedTask(t *testing.T) {
	tk := task.New()
	tk.Start()
	tk.FinishOK()
	if !tk.Cancel() {
		t.Fatal("cancel on a finished task reports true")
	}
	if got := tk.State(); got != task.StateDone {
		t.Fatalf("state = %v; cancel must not disturb a done task", got)
	}
}

// Cancellation may race normal completion: a cancelling task is still
// allowed to finish OK if its work already completed.
func TestFinishRacesCancellation(t *testing.T) {
	parent := task.New()
	parent.Start()
	child := task.New()
	parent.AddSubtask(child)
	child.Start()
	grand := task.New()
	child.AddSubtask(grand)
	grand.Start()

	if parent.Cancel() {
		t.Fatal("cancel with live children must report pending")
	}
	if !child.IsCancelling() {
		t.Fatal("child with live children must be cancelling")
	}
	grand.FinishOK()
	child.FinishOK() // raced to completion despite cancel request
	if got := child.State(); got != task.StateDone {
		t.Fatalf("child state = %v, want done", got)
	}
	parent.FinishCancel()
	if got := parent.State(); got != task.StateCancelled {
		t.Fatalf("parent state = %v, want cancelled", got)
	}
}

func TestSubtaskTreeCancellation(t *testing.T) {
	parent := task.New()
	parent.Start()
	c0, c1 := task.New(), task.New()
	parent.AddSubtask(c0)
	parent.AddSubtask(c1)
	c0.Start()
	c1.Start()

	c0.FinishOK()
	if got := parent.LiveSubtasks(); got != 1 {
		t.Fatalf("live subtasks = %d after c0 finished, want 1", got)
	}

	if parent.Cancel() {
		t.Fatal("cancel with a live child must report pending")
	}
	if !parent.IsCancelling() {
		t.Fatal("parent must be cancelling")
	}
	// c1 had no subtasks of its own, so the pushed cancel completed it.
	if got := c1.State(); got != task.StateCancelled {
		t.Fatalf("c1 state = %v, want cancelled", got)
	}
	if got := parent.LiveSubtasks(); got != 0 {
		t.Fatalf("live subtasks = %d after cancellation, want 0", got)
	}

	parent.FinishCancel()
	if got := parent.State(); got != task.StateCancelled {
		t.Fatalf("parent state = %v, want cancelled", got)
	}
	if got := c0.State(); got != task.StateDone {
		t.Fatalf("c0 state = %v, want done", got)
	}
	if !parent.Result().IsCancelled() {
		t.Fatalf("parent result = %+v, want cancelled", parent.Result())
	}
}

func TestCancelPropagatesThroughDeepTree(t *testing.T) {
	parent := task.New()
	parent.Start()
	mid := task.New()
	parent.AddSubtask(mid)
	mid.Start()
	leaf := task.New()
	mid.AddSubtask(leaf)
	leaf.Start()

	if parent.Cancel() {
		t.Fatal("expected pending cancellation")
	}
	if !mid.IsCancelling() {
		t.Fatal("mid must be cancelling, it had a live leaf")
	}
	if got := leaf.State(); got != task.StateCancelled {
		t.Fatalf("leaf state = %v, want cancelled", got)
	}
	if got := mid.LiveSubtasks(); got != 0 {
		t.Fatalf("mid live subtasks = %d, want 0", got)
	}
	mid.FinishCancel()
	parent.FinishCancel()
	if got := parent.State(); got != task.StateCancelled {
		t.Fatalf("parent state = %v, want cancelled", got)
	}
}

func TestReset(t *testing.T) {
	tk := task.New()
	fired := 0
	tk.OnFinished(counter(&fired))
	tk.Start()
	tk.FinishOK()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	tk.Reset()
	if got := tk.State(); got != task.StateReady {
		t.Fatalf("state after reset = %v, want ready", got)
	}
	mustPanic(t, "result after reset", func() { tk.Result() })

	// The listener list was cleared: finishing again must not refire the
	// old callback.
	tk.Start()
	tk.Cancel()
	if fired != 1 {
		t.Fatalf("stale listener refired, fired = %d", fired)
	}
}

func TestResetListenerReentry(t *testing.T) {
	tk := task.New()
	tk.Start()
	// A listener may re-enter its own task because listeners run outside
	// the task lock.
	tk.OnFinished(api.NewCallback(func() api.Result {
		tk.Reset()
		return api.OK
	}))
	tk.FinishOK()
	if got := tk.State(); got != task.StateReady {
		t.Fatalf("state = %v, want ready after re-entrant reset", got)
	}
}

func TestWait(t *testing.T) {
	tk := task.New()
	tk.Start()
	go tk.FinishOK()
	if res := tk.Wait(); res.Err != nil {
		t.Fatalf("wait result: %v", res.Err)
	}
}

func TestConcurrentListenerRegistration(t *testing.T) {
	tk := task.New()
	tk.Start()
	var fired atomic.Int64
	var eg errgroup.Group
	for i := 0; i < 64; i++ {
		eg.Go(func() error {
			tk.OnFinished(api.NewCallback(func() api.Result {
				fired.Add(1)
				return api.OK
			}))
			return nil
		})
	}
	eg.Go(func() error {
		tk.FinishOK()
		return nil
	})
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	tk.Wait()
	if got := fired.Load(); got != 64 {
		t.Fatalf("fired = %d, want 64 (exactly once each)", got)
	}
}

func TestTryFinishConcedesToSettledTask(t *testing.T) {
	tk := task.New()
	tk.Start()
	fired := 0
	tk.OnFinished(counter(&fired))
	if !tk.TryFinish(api.ValueOf(7)) {
		t.Fatal("TryFinish on a running task must complete it")
	}
	if fired != 1 || tk.Result().Int() != 7 {
		t.Fatalf("fired = %d, result = %+v", fired, tk.Result())
	}
	if tk.TryFinish(api.OK) {
		t.Fatal("TryFinish on a finished task must concede")
	}
	if tk.Result().Int() != 7 {
		t.Fatal("conceding TryFinish must not overwrite the result")
	}

	cancelled := task.New()
	cancelled.Start()
	cancelled.Cancel()
	if cancelled.TryFinish(api.OK) {
		t.Fatal("TryFinish must concede to cancellation")
	}
	if !cancelled.Result().IsCancelled() {
		t.Fatalf("result = %+v", cancelled.Result())
	}

	mustPanic(t, "try-finish before start", func() { task.New().TryFinish(api.OK) })
}
