// Package notify provides the handle-based callback registries used by the
// session and the stores to publish messages and state changes.
package notify

import (
	"sync"
)

// Handle identifies one registration. Handles are never reused within a
// registry.
type Handle uint64

// Registry holds callbacks in registration order. The zero value is ready to
// use and is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.Mutex
	next    Handle
	order   []Handle
	entries map[Handle]func(T)
}

// Add registers fn and returns its handle.
func (r *Registry[T]) Add(fn func(T)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[Handle]func(T))
	}
	r.next++
	r.entries[r.next] = fn
	r.order = append(r.order, r.next)
	return r.next
}

// Remove unregisters h. It reports whether h was registered; removing an
// unknown or already removed handle is a no-op.
func (r *Registry[T]) Remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h]; !ok {
		return false
	}
	delete(r.entries, h)
	for i, existing := range r.order {
		if existing == h {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every registration.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.order = nil
}

// Len returns the number of registered callbacks.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Notify calls every callback registered when Notify starts, in registration
// order, on the calling goroutine. A callback removed before its turn (for
// example by an earlier callback) is skipped. No lock is held while a callback
// runs, so callbacks may add or remove registrations.
func (r *Registry[T]) Notify(v T) {
	r.mu.Lock()
	handles := make([]Handle, len(r.order))
	copy(handles, r.order)
	r.mu.Unlock()

	for _, h := range handles {
		r.mu.Lock()
		fn, ok := r.entries[h]
		r.mu.Unlock()

		if ok {
			fn(v)
		}
	}
}
