package server

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/metrics"
)

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients   map[*Client]struct{}
	broadcast chan Message
	closed    bool
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// NewHub returns an idle hub; run it with Serve.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, 16),
		logger:    logging.WithComponent("ws-hub"),
	}
}

// Serve runs the fan-out loop until ctx ends, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.logger.Info().Int("clients_closed", n).Msg("websocket hub stopped")
			return ctx.Err()
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Broadcast queues msg for every client, giving up when ctx ends.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	select {
	case h.broadcast <- msg:
	case <-ctx.Done():
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// join registers c with first as its opening message. first is computed
// under the hub lock, so no fan-out can slip between it and registration.
// It reports false once the hub has stopped.
func (h *Hub) join(c *Client, first func() Message) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	c.send <- first()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.Info().Str("client", c.id).Int("total_clients", total).Msg("websocket client connected")
	return true
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(total))
		h.logger.Info().Str("client", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// sendTo queues msg for one client if it is still registered.
func (h *Hub) sendTo(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn().Str("client", c.id).Str("type", msg.Type).Msg("client buffer full, reply dropped")
	}
}

// fanOut delivers msg in connection order. Clients whose buffers are full
// are disconnected.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].seq < clients[j].seq })

	for _, c := range clients {
		select {
		case c.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			h.logger.Warn().Str("client", c.id).Msg("dropping slow websocket client")
			close(c.send)
			delete(h.clients, c)
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.WSConnections.Set(0)
	return n
}
