// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package fake provides deterministic test doubles: a manual-clock
// scheduler whose Advance fires due timers synchronously, and scripted
// async readers and writers that complete their tasks inline.
package fake
