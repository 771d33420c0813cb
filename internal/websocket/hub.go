package websocket

import (
	"context"
	"sync"

	"helpdesk-be/internal/metrics"
	"helpdesk-be/internal/pkg/logger"
)

// Hub keeps track of the open connections of every surface so they can be
// counted and closed together on shutdown.
type Hub struct {
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx ends, then closes
// every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			metrics.LiveConnections.WithLabelValues(client.Surface).Inc()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID, "surface": client.Surface})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				metrics.LiveConnections.WithLabelValues(client.Surface).Dec()
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID, "surface": client.Surface})

		case <-ctx.Done():
			h.CloseAll()
			return
		}
	}
}

// Count returns the number of open connections of surface.
func (h *Hub) Count(surface string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.Surface == surface {
			n++
		}
	}
	return n
}

// CloseAll closes every connection. Each handler then unwinds on its own.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Conn.Close()
	}
}

func (h *Hub) add(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
