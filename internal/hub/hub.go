// Package hub pushes feed events to SSE clients. It is the push half of
// the event feed boundary; the pull half is the feed snapshot.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"wifiradar/internal/domain"
)

// Client represents a connected SSE consumer.
type Client struct {
	id     string
	events chan []byte
	done   chan struct{}
}

// Hub manages SSE client connections over the event feed.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.Event
	log        *slog.Logger
}

// New creates a hub.
func New(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.Event, 256),
		log:        log,
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.log.Info("sse client connected", "id", client.id, "total", h.clientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			h.log.Info("sse client disconnected", "id", client.id, "total", h.clientCount())

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("marshal event", "err", err)
				continue
			}
			msg := []byte(fmt.Sprintf("data: %s\n\n", data))

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- msg:
				default:
					// Client is slow, skip this message.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for all connected clients.
func (h *Hub) Broadcast(ev domain.Event) {
	select {
	case h.broadcast <- ev:
	default:
		// Hub is saturated; the feed snapshot remains authoritative.
	}
}

// Consume drains a feed subscription into the hub until ch closes.
func (h *Hub) Consume(ch <-chan domain.Event) {
	for ev := range ch {
		h.Broadcast(ev)
	}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	h.register <- client
	defer func() { h.unregister <- client }()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Hub) clientCount() int {
	return len(h.clients)
}
