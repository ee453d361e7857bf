// Package ws implements the tenant-partitioned broadcast bus over live
// websocket connections.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"sensorhub/internal/metric"
)

// Envelope is the wire format of every outbound frame.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub tracks live client connections, each tagged with the ingenio resolved
// at connect time. Sends are fire-and-forget per connection: a stalled or
// closed client is skipped, never awaited.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
	metrics *metric.Metrics
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger, metrics *metric.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.ConnectionsActive.Inc()
	h.logger.Info("client connected",
		zap.String("conn_id", c.id), zap.Int64("ingenio_id", c.ingenioID))
}

// Unregister removes a connection. Safe to call more than once for the same
// client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if present {
		h.metrics.ConnectionsActive.Dec()
		h.logger.Info("client disconnected",
			zap.String("conn_id", c.id), zap.Int64("ingenio_id", c.ingenioID))
	}
}

// Publish sends an event to every connection regardless of ingenio. Used
// for system-wide events.
func (h *Hub) Publish(event string, payload any) {
	h.broadcast(event, payload, "all", func(*Client) bool { return true })
}

// PublishToIngenio sends an event only to connections tagged with the given
// ingenio.
func (h *Hub) PublishToIngenio(event string, payload any, ingenioID int64) {
	h.broadcast(event, payload, "ingenio", func(c *Client) bool { return c.ingenioID == ingenioID })
}

// broadcast serializes the envelope once and reuses the bytes for every
// matching connection.
func (h *Hub) broadcast(event string, payload any, scope string, match func(*Client) bool) {
	msg, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("failed to encode broadcast envelope",
			zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !match(c) {
			continue
		}
		if c.trySend(msg) {
			h.metrics.BroadcastsSent.WithLabelValues(scope).Inc()
		} else {
			h.metrics.BroadcastsSkipped.Inc()
		}
	}
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
