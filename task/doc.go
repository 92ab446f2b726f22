// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package task implements the asynchronous-operation state machine.
//
// A Task tracks one operation through ready, running, cancelling and the
// terminal done/cancelled states. Tasks nest: a parent forwards cancellation
// to its live subtasks, and a subtask's completion removes it from the
// parent's live set. Completion fires registered one-shot callbacks exactly
// once, in registration order, outside the task's internal lock.
//
// Contract violations (starting a non-ready task, reading the result of an
// unfinished task, finishing twice) are programming errors and panic.
// Operational failures travel through api.Result values instead.
package task
