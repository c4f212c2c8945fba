package session

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	lastSeen time.Time
}

// Registry keeps one value per session id in memory and drops values that
// have not been requested for longer than the idle timeout.
type Registry[T any] struct {
	mu        sync.Mutex
	entries   map[string]*entry[T]
	open      func(id string) T
	idle      time.Duration
	lastSweep time.Time

	Now    func() time.Time
	OnSize func(n int)
}

func NewRegistry[T any](idle time.Duration, open func(id string) T) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*entry[T]),
		open:    open,
		idle:    idle,
	}
}

func (r *Registry[T]) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Get returns the value held for id, creating it on first use.
func (r *Registry[T]) Get(id string) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	if e, ok := r.entries[id]; ok {
		e.lastSeen = now
		return e.value
	}
	e := &entry[T]{value: r.open(id), lastSeen: now}
	r.entries[id] = e
	r.reportLocked()
	return e.value
}

func (r *Registry[T]) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	r.reportLocked()
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry[T]) sweepLocked(now time.Time) {
	if r.idle <= 0 || now.Sub(r.lastSweep) < r.idle/2 {
		return
	}
	r.lastSweep = now
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.entries, id)
		}
	}
	r.reportLocked()
}

func (r *Registry[T]) reportLocked() {
	if r.OnSize != nil {
		r.OnSize(len(r.entries))
	}
}
