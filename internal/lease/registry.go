// Package lease serialises work per key inside one process.
package lease

import (
	"context"
	"sync"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// Registry hands out one exclusive lease per key. Keys with no holder and no
// waiter are forgotten.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

func (r *Registry) ref(key string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		r.slots[key] = s
	}
	s.refs++
	return s
}

func (r *Registry) unref(key string, s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(r.slots, key)
	}
}

// Acquire blocks until the lease for key is free or ctx is done. The returned
// release func must be called exactly once; extra calls are ignored.
func (r *Registry) Acquire(ctx context.Context, key string) (func(), error) {
	s := r.ref(key)
	select {
	case s.ch <- struct{}{}:
		return r.releaser(key, s), nil
	case <-ctx.Done():
		r.unref(key, s)
		return nil, ctx.Err()
	}
}

// TryAcquire takes the lease only if it is free right now. The scheduler uses it
// to leave events that are being worked on for a later tick.
func (r *Registry) TryAcquire(key string) (func(), bool) {
	s := r.ref(key)
	select {
	case s.ch <- struct{}{}:
		return r.releaser(key, s), true
	default:
		r.unref(key, s)
		return nil, false
	}
}

func (r *Registry) releaser(key string, s *slot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			r.unref(key, s)
		})
	}
}
