// Package watch provides observable state holders.
//
// Each [Value] wraps a single shared value replaced wholesale on every write.
// Subscribers are notified synchronously, in registration order, with the new
// snapshot. There is no transactional isolation: every read sees the latest
// write, which is all the single-writer state in this client needs.
package watch

import "sync"

// Value is an observable container for a value of type T.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	nextID  int
	order   []int
	subs    map[int]func(T)
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[int]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set replaces the value and notifies all subscribers with the new snapshot.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.current = next
	fns := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		if fn, ok := v.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	v.mu.Unlock()

	// Notify outside the lock so a subscriber may read or even set the value.
	for _, fn := range fns {
		fn(next)
	}
}

// Update applies fn to the current value and publishes the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	next := fn(v.current)
	v.mu.Unlock()
	v.Set(next)
}

// Subscribe registers fn to run on every subsequent Set. It returns a cancel
// function that removes the subscription; cancel is safe to call more than
// once.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.order = append(v.order, id)
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}
