// Package hub pushes lifecycle events to connected UI clients over
// WebSocket. Publishing never blocks: a client that cannot keep up drops
// events rather than stalling the control plane.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

type Hub struct {
	token   string
	mu      sync.RWMutex
	clients map[string]*client
}

func New(token string) *Hub {
	return &Hub{
		token:   token,
		clients: make(map[string]*client),
	}
}

// Publish fans an event out to every connected client.
func (h *Hub) Publish(eventType string, data map[string]any) {
	evt := Event{Type: eventType, Data: data, Ts: time.Now().UnixMilli()}
	payload, err := json.Marshal(evt)
	if err != nil {
		slog.Error("failed to encode event", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("client send buffer full, dropping event", "client", c.id, "type", eventType)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	c := newClient(conn)
	h.register(c)
	defer h.unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	slog.Info("client connected", "client", c.id, "total", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	slog.Info("client disconnected", "client", c.id, "total", len(h.clients))
}
