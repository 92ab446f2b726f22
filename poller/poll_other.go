//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

// File: poller/poll_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub for platforms without poll(2).

package poller

import (
	"fmt"

	"github.com/momentics/hioload-async/api"
)

func newPollPoller(cfg config) (api.Poller, error) {
	return nil, fmt.Errorf("poller: poll backend: %w", api.ErrNotSupported)
}
