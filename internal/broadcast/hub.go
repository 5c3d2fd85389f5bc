package broadcast

import (
	"encoding/json"
	"sync"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Conn is the write side of one subscriber connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing the package.
const textMessage = 1

// Hub fans a serialized payload out to every registered subscriber. Sends
// are best-effort: a failed write drops that subscriber without affecting
// the others or the caller.
type Hub struct {
	mu      sync.Mutex
	conns   map[Conn]struct{}
	log     *logger.Logger
	metrics repository.Metrics
}

func NewHub(log *logger.Logger, metrics repository.Metrics) *Hub {
	return &Hub{
		conns:   make(map[Conn]struct{}),
		log:     log,
		metrics: metrics,
	}
}

// Register adds a subscriber. The caller remains responsible for the read
// side of the connection.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.metrics.SetSubscribers(n)
	h.log.Debug("subscriber registered", logger.Int("subscribers", n))
}

// Unregister removes and closes a subscriber.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	if ok {
		_ = c.Close()
		h.metrics.SetSubscribers(n)
		h.log.Debug("subscriber unregistered", logger.Int("subscribers", n))
	}
}

// Publish marshals payload once and writes it to every subscriber,
// pruning any connection whose write fails.
func (h *Hub) Publish(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal broadcast payload", logger.Error(err))
		return
	}

	h.mu.Lock()
	var failed []Conn
	for c := range h.conns {
		if err := c.WriteMessage(textMessage, data); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		delete(h.conns, c)
		_ = c.Close()
	}
	n := len(h.conns)
	h.mu.Unlock()

	if len(failed) > 0 {
		h.log.Warn("dropped unresponsive subscribers",
			logger.Int("dropped", len(failed)),
			logger.Int("subscribers", n))
	}
	h.metrics.SetSubscribers(n)
}

// Count returns the current subscriber count.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
