//go:build !linux

// File: poller/epoll_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// epoll is Linux-only; requesting it elsewhere is an error.

package poller

import (
	"fmt"

	"github.com/momentics/hioload-async/api"
)

func newEpollPoller(cfg config) (api.Poller, error) {
	return nil, fmt.Errorf("poller: epoll backend: %w", api.ErrNotSupported)
}
