// Package hub fans storage changes out to the other handles (tabs) of a
// storage backend.
package hub

import (
	"excalidraw-drawings/core"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
)

type listener struct {
	tab string
	key string
	fn  core.ChangeListener
}

type Hub struct {
	mu        sync.RWMutex
	nextID    uint64
	order     []uint64
	listeners map[uint64]listener
}

func New() *Hub {
	return &Hub{listeners: make(map[uint64]listener)}
}

// NewTab returns a fresh tab identifier.
func NewTab() string {
	return ulid.Make().String()
}

// Listen registers fn for changes of key that do not originate from tab.
func (h *Hub) Listen(tab, key string, fn core.ChangeListener) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = listener{tab: tab, key: key, fn: fn}
	h.order = append(h.order, id)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		if _, ok := h.listeners[id]; ok {
			delete(h.listeners, id)
			h.order = slices.DeleteFunc(h.order, func(v uint64) bool { return v == id })
		}
		h.mu.Unlock()
	}
}

// Notify delivers ev to the listeners of ev.Key on every tab except origin.
// Listeners run on the caller's goroutine, after the hub lock is released.
func (h *Hub) Notify(origin string, ev core.StorageEvent) {
	h.mu.RLock()
	var targets []core.ChangeListener
	for _, id := range h.order {
		l := h.listeners[id]
		if l.tab == origin || l.key != ev.Key {
			continue
		}
		targets = append(targets, l.fn)
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}
