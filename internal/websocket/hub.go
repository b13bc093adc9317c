package websocket

import (
	"encoding/json"
	"sync"

	"oho-chat-gateway/internal/dto"
	"oho-chat-gateway/internal/pkg/logger"
)

// Hub fans completed turns out to connected debug clients. The feed is
// diagnostic only; dropping a slow client never affects a turn.
type Hub struct {
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Debug client registered", map[string]interface{}{"clients": h.clientCount()})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Debug client unregistered", map[string]interface{}{"clients": h.clientCount()})
		}
	}
}

// BroadcastTurn sends a turn event to every connected client.
func (h *Hub) BroadcastTurn(event dto.TurnCompletedEvent) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "turn",
		"data": event,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop it rather than block the feed.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
