package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/snarlhq/snarl/internal/observability"
)

// Hub fans analysis events out to connected SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// Client is a single event-stream connection.
type Client struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	observability.EventClients.Set(float64(len(h.clients)))
}

// Unregister removes a client and releases its keepalive goroutine. Safe to
// call more than once per client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.done)
		observability.EventClients.Set(float64(len(h.clients)))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	for client := range h.clients {
		select {
		case <-client.done:
			// Client disconnected, skip
		default:
			client.send(data)
		}
	}
}

// NewClient upgrades an HTTP response into an event stream. Fails when the
// ResponseWriter cannot flush.
func NewClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Client{
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// send writes one SSE data frame to the client.
func (c *Client) send(data []byte) {
	fmt.Fprintf(c.writer, "data: %s\n\n", data)
	c.flusher.Flush()
}

// SendPing writes an SSE comment to keep the connection alive.
func (c *Client) SendPing() {
	select {
	case <-c.done:
		return
	default:
		fmt.Fprintf(c.writer, ": ping\n\n")
		c.flusher.Flush()
	}
}

// KeepAlive pings the client on an interval until it disconnects.
func (c *Client) KeepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.SendPing()
		}
	}
}
