// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package poller provides the level-triggered I/O readiness multiplexer
// behind api.Poller, with a closed set of backends selected at construction
// time: a scalable epoll implementation on Linux and a portable poll(2)
// fallback on other Unix platforms. Both backends pass the same conformance
// suite; backend choice is a configuration decision, never a behavioral one.
package poller
