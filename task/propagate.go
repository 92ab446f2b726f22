// File: task/propagate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Result propagation between a finished subtask and a pending task.

package task

// Propagate copies the outcome of the finished task src into the pending
// task dst, finishing it. A cancelled outcome lands dst in the cancelled
// state when dst is itself cancelling; otherwise dst finishes normally with
// the copied result. A dst that already settled (it lost a race against its
// own cancellation) is left untouched.
func Propagate(src, dst *Task) {
	res := src.Result()
	if res.IsCancelled() && dst.IsCancelling() {
		dst.FinishCancel()
		return
	}
	dst.TryFinish(res)
}

// ForwardFailure short-circuits error handling between stages: when the
// finished subtask src failed or was cancelled, its outcome is forwarded
// verbatim into dst and true is returned. A successful src leaves dst
// untouched and returns false.
func ForwardFailure(src, dst *Task) bool {
	if src.Result().Err == nil {
		return false
	}
	Propagate(src, dst)
	return true
}
