// Package state holds the client-side state: credential, view state, the open
// drawing's content and the drawing metadata. Each holder is constructed
// explicitly and notifies subscribers on every change.
package state

import "sync"

// Value is an observable value. Subscribers are called with the current value
// when they subscribe and after every Set or Update.
type Value[T any] struct {
	mu          sync.Mutex
	value       T
	nextID      uint64
	subscribers map[uint64]func(T)
	order       []uint64
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial, subscribers: make(map[uint64]func(T))}
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
	v.notify(value)
}

// Update replaces the value with fn(current) atomically and returns the new value.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	v.value = fn(v.value)
	value := v.value
	v.mu.Unlock()
	v.notify(value)
	return value
}

// Subscribe calls fn with the current value, then on every change, until the
// returned func is called.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	v.nextID++
	id := v.nextID
	v.subscribers[id] = fn
	v.order = append(v.order, id)
	value := v.value
	v.mu.Unlock()

	fn(value)

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subscribers, id)
		for i, oid := range v.order {
			if oid == id {
				v.order = append(v.order[:i:i], v.order[i+1:]...)
				break
			}
		}
	}
}

func (v *Value[T]) notify(value T) {
	v.mu.Lock()
	fns := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		fns = append(fns, v.subscribers[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
