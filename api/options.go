// File: api/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Extensible key-typed settings bag threaded through async calls. Components
// use it to locate the scheduler or poller and forward it to nested calls.

package api

import "sync"

// Key identifies one options entry. Keys are compared by identity, so two
// packages can use the same name without colliding.
type Key struct{ name string }

// NewKey allocates a fresh options key with a diagnostic name.
func NewKey(name string) *Key { return &Key{name: name} }

// String returns the diagnostic name of the key.
func (k *Key) String() string { return k.name }

// Options is a concurrency-safe key/value bag. The zero value and nil are
// both usable for reads; Set on a nil Options panics.
type Options struct {
	mu     sync.RWMutex
	values map[*Key]any
}

// NewOptions creates an empty options bag.
func NewOptions() *Options { return &Options{} }

// Set stores value under key and returns o for chaining.
func (o *Options) Set(key *Key, value any) *Options {
	o.mu.Lock()
	if o.values == nil {
		o.values = make(map[*Key]any)
	}
	o.values[key] = value
	o.mu.Unlock()
	return o
}

// Get returns the value stored under key, if any.
func (o *Options) Get(key *Key) (any, bool) {
	if o == nil {
		return nil, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// Clone returns an independent copy of the bag.
func (o *Options) Clone() *Options {
	c := NewOptions()
	if o == nil {
		return c
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.values) > 0 {
		c.values = make(map[*Key]any, len(o.values))
		for k, v := range o.values {
			c.values[k] = v
		}
	}
	return c
}

var (
	schedulerKey = NewKey("scheduler")
	pollerKey    = NewKey("poller")
)

// WithScheduler stores the scheduler handle in the bag.
func WithScheduler(o *Options, s Scheduler) *Options { return o.Set(schedulerKey, s) }

// SchedulerFrom extracts the scheduler handle, or nil when absent.
func SchedulerFrom(o *Options) Scheduler {
	if v, ok := o.Get(schedulerKey); ok {
		if s, ok := v.(Scheduler); ok {
			return s
		}
	}
	return nil
}

// WithPoller stores the poller handle in the bag.
func WithPoller(o *Options, p Poller) *Options { return o.Set(pollerKey, p) }

// PollerFrom extracts the poller handle, or nil when absent.
func PollerFrom(o *Options) Poller {
	if v, ok := o.Get(pollerKey); ok {
		if p, ok := v.(Poller); ok {
			return p
		}
	}
	return nil
}
