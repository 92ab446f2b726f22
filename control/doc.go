// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package control holds the runtime side-channels of the async core: a
// dynamic configuration store with reload listeners and a thread-safe
// metrics registry that pollers and rate limiters publish counters into.
package control
