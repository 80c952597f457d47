// Package directory implements a generic name-to-ID registry used to
// give entities, processes, and in-channels a stable human-readable
// name without forcing the kernel to own string keys in its hot-path
// arenas.
package directory

import "sync"

// Registry maps names to arena indices. The first registration for a
// given name wins; later attempts to register the same name report the
// existing ID and ok=false so callers can log a conflict without
// panicking mid-simulation.
type Registry[T any] struct {
	mu    sync.RWMutex
	names map[string]T
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{names: make(map[string]T)}
}

// Register binds name to id. If name is already registered, the
// existing binding is kept, onConflict (if non-nil) is invoked with
// name, and Register reports isNew=false.
func (r *Registry[T]) Register(name string, id T, onConflict func(name string)) (bound T, isNew bool) {
	r.mu.Lock()
	if cur, found := r.names[name]; found {
		r.mu.Unlock()
		if onConflict != nil {
			onConflict(name)
		}
		return cur, false
	}
	r.names[name] = id
	r.mu.Unlock()
	return id, true
}

// Lookup returns the ID registered for name, if any.
func (r *Registry[T]) Lookup(name string) (id T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok = r.names[name]
	return id, ok
}
