// Package sse fans panel updates out to browsers over server-sent events. The Hub is
// the Renderer the panels draw into.
package sse

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// clientBuffer is the per-client queue length. A client whose queue is full misses
// messages rather than blocking the publisher.
const clientBuffer = 64

// Message is one server-sent event.
type Message struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub tracks connected clients and the last state rendered for each panel.
type Hub struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]chan Message
	latest  map[string]any
	nextID  int64
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]chan Message),
		latest:  make(map[string]any),
	}
}

// Render broadcasts a panel's state and keeps it for clients that connect later.
func (h *Hub) Render(panel string, state any) {
	h.mu.Lock()
	h.latest[panel] = state
	msg := h.messageLocked(panel, state)
	h.mu.Unlock()
	h.Broadcast(msg)
}

// AddClient registers a client and returns its id and message channel. The channel
// is pre-filled with the latest state of every panel.
func (h *Hub) AddClient() (string, <-chan Message) {
	id := uuid.New().String()
	ch := make(chan Message, clientBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch
	}
	h.clients[id] = ch
	panels := make([]string, 0, len(h.latest))
	for name := range h.latest {
		panels = append(panels, name)
	}
	sort.Strings(panels)
	for _, name := range panels {
		select {
		case ch <- h.messageLocked(name, h.latest[name]):
		default:
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	observability.SSEClients.Set(float64(total))
	h.logger.Info("sse client connected", zap.String("client_id", id), zap.Int("total", total))
	return id, ch
}

// RemoveClient unregisters a client and closes its channel.
func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		close(ch)
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		observability.SSEClients.Set(float64(total))
		h.logger.Info("sse client disconnected", zap.String("client_id", id), zap.Int("remaining", total))
	}
}

// Close disconnects every client and refuses new ones. Streams end when their channel
// closes, which lets the server drain during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	n := len(h.clients)
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.closed = true
	h.mu.Unlock()

	observability.SSEClients.Set(0)
	h.logger.Info("sse hub closed", zap.Int("disconnected", n))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients with a full queue skip it.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("sse client queue full, dropping message",
				zap.String("client_id", id), zap.String("type", msg.Type))
		}
	}
}

// Latest returns the last rendered state of a panel.
func (h *Hub) Latest(panel string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.latest[panel]
	return s, ok
}

func (h *Hub) messageLocked(panel string, state any) Message {
	h.nextID++
	return Message{ID: h.nextID, Type: panel, Data: state}
}
