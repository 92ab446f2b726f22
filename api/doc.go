// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package api defines the contracts shared by every component of the
// asynchronous-operation core: operation results, one-shot callbacks and
// reusable handlers, I/O readiness sets, the poller and scheduler
// interfaces, and the per-call options bag.
package api
