// Package event decouples the state holders: a store publishes what happened
// and the interested stores react, without importing each other.
package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Type int

const (
	// ContentSaved is published after drawing content was persisted. Data is the drawing id (int64).
	ContentSaved Type = iota
	// DrawingRemoved is published after a drawing record was removed. Data is the drawing id (int64).
	DrawingRemoved
	// AuthRequired is published when the API rejected the credential.
	AuthRequired
)

func (t Type) String() string {
	switch t {
	case ContentSaved:
		return "content:saved"
	case DrawingRemoved:
		return "drawing:removed"
	case AuthRequired:
		return "auth:required"
	default:
		return "unknown"
	}
}

type Event struct {
	Type Type
	Data any
}

type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[Type][]subscription
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Type][]subscription),
	}
}

// Subscribe registers handler for events of type t and returns a func that
// removes it again.
func (b *Bus) Subscribe(t Type, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[t] = append(b.subscribers[t], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[t]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler subscribed to e.Type before returning. Handlers
// may publish further events.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[e.Type]...)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(s.handler, e)
	}
}

func deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"event": e.Type.String(),
				"panic": r,
			}).Error("Panic in event handler")
		}
	}()
	h(e)
}
