// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package sched provides the default api.Scheduler: a wall-clock timer
// scheduler with a binary-heap timer queue and a single dispatch goroutine.
// Timer handlers run on the dispatch goroutine; rearming an armed timer
// replaces its deadline.
package sched
