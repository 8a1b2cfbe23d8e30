// Package bus provides the fire-and-forget broadcast channel between the
// mutation service and connected clients.
package bus

import (
	"sync"

	"github.com/agorachat/agora/internal/model"
)

// Handler receives one broadcast event. Handlers must not block.
type Handler func(event model.Event)

// Bus is a publish/subscribe fan-out. Delivery is best-effort: no acks, no
// retries, no buffering for absent subscribers. A subscriber that misses
// events recovers through the resync protocol and the polling fallback.
type Bus interface {
	// Publish fans the event out to all current subscribers.
	Publish(event model.Event) error
	// Subscribe registers a handler and returns a function that removes it.
	Subscribe(handler Handler) (func(), error)
	// Close releases the bus.
	Close() error
}

// MemoryBus is an in-process Bus for single-binary deployments and tests.
type MemoryBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]Handler)}
}

// Publish delivers the event to every subscriber synchronously.
func (b *MemoryBus) Publish(event model.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(event)
	}
	return nil
}

// Subscribe registers a handler.
func (b *MemoryBus) Subscribe(handler Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

// Close removes all subscribers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.handlers = make(map[int]Handler)
	b.mu.Unlock()
	return nil
}
