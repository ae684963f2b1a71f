package notify

import "sync"

// Value is an observable value. Watchers are notified synchronously after
// every Set or Update.
type Value[T any] struct {
	mu       sync.RWMutex
	current  T
	watchers Registry[T]
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the value and notifies watchers with the new value.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.current = next
	v.mu.Unlock()

	v.watchers.Notify(next)
}

// Update applies fn to the current value under the lock, then notifies.
func (v *Value[T]) Update(fn func(*T)) {
	v.mu.Lock()
	fn(&v.current)
	next := v.current
	v.mu.Unlock()

	v.watchers.Notify(next)
}

// Watch registers fn for future changes.
func (v *Value[T]) Watch(fn func(T)) Handle {
	return v.watchers.Add(fn)
}

func (v *Value[T]) Unwatch(h Handle) bool {
	return v.watchers.Remove(h)
}
