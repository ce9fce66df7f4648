// Package websocket pushes bridge events to connected IDE frontends.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one message pushed to the frontend.
type Event struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Client is one connected frontend.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	send chan []byte
}

// Hub manages frontend connections and event broadcasting.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	done       <-chan struct{}
	logf       func(format string, args ...any)
}

// NewHub creates a hub.
func NewHub(logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = log.Printf
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logf:       logf,
	}
}

// Run starts the hub's main loop. It returns when done is closed.
// Clients must not connect before Run is started.
func (h *Hub) Run(done <-chan struct{}) {
	h.mu.Lock()
	h.done = done
	h.mu.Unlock()

	for {
		select {
		case <-done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			data, err := json.Marshal(evt)
			if err != nil {
				h.logf("websocket: marshal event: %v", err)
				continue
			}

			var toDrop []*Client
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Buffer full; the frontend stopped reading.
					toDrop = append(toDrop, client)
				}
			}
			h.mu.RUnlock()

			if len(toDrop) > 0 {
				h.mu.Lock()
				for _, client := range toDrop {
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Send queues an event for every connected frontend. It never blocks;
// if the hub's buffer is full the event is dropped and logged.
func (h *Hub) Send(event string, payload map[string]any) {
	evt := Event{Event: event, Timestamp: time.Now(), Payload: payload}
	select {
	case h.broadcast <- evt:
	default:
		h.logf("websocket: dropping %s event, hub buffer full", event)
	}
}

func (h *Hub) stopped() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}

// add registers the client with the hub. It reports false once the hub
// has shut down; register sends must not block forever after Run exits.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped():
		return false
	}
}

// drop unregisters the client, returning immediately when the hub has
// already shut down.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped():
	}
}

// ClientCount returns the number of connected frontends.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
