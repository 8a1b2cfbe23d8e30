// Package ws fans broadcast events out to websocket clients and serves the
// resync protocol.
package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/agorachat/agora/internal/bus"
	"github.com/agorachat/agora/internal/model"
	"github.com/agorachat/agora/pkg/logger"
)

// sendBuffer is the per-client outbound queue depth. A client that cannot
// drain this many events is dropped; it recovers via resync and polling.
const sendBuffer = 64

// Hub tracks connected websocket clients and relays bus events to them.
// Delivery is fire-and-forget per client: no acks, no retry, no buffering
// for the disconnected.
type Hub struct {
	logger *logger.Logger

	mu      sync.Mutex
	clients map[*client]bool

	unsubscribe func()
}

// NewHub creates a hub subscribed to the broadcast bus.
func NewHub(b bus.Bus, log *logger.Logger) (*Hub, error) {
	h := &Hub{
		logger:  log,
		clients: make(map[*client]bool),
	}

	unsub, err := b.Subscribe(h.fanOut)
	if err != nil {
		return nil, err
	}
	h.unsubscribe = unsub
	return h, nil
}

// fanOut queues the event on every connected client. Full queues mean the
// client is too slow to keep a consistent view over push alone; closing the
// socket forces it through the reconnect/resync path instead of silently
// skipping events.
func (h *Hub) fanOut(event model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("user_id", c.userID))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// trySend queues one event for a single client, used for the direct
// sync:state reply. Queueing and channel close are both guarded by h.mu, so
// a concurrent drop cannot race the send: a client already removed from the
// map gets a silent no-op instead of a send on a closed channel.
func (h *Hub) trySend(c *client, event model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- event:
	default:
		h.logger.Warn("dropping slow websocket client", zap.String("user_id", c.userID))
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches from the bus and disconnects all clients.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
