// Package dashboard streams analysis lifecycle events to clients over SSE
// and keeps a bounded in-memory view of recent runs. It owns no listener;
// Mount attaches its handlers to an existing mux, normally the explorer's.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Dashboard ties the live run store, the event hub, and the emitter together.
type Dashboard struct {
	Store   *Store
	Hub     *Hub
	Emitter *Emitter
}

// New creates a fully wired dashboard.
func New() *Dashboard {
	store := NewStore()
	hub := NewHub()
	return &Dashboard{
		Store:   store,
		Hub:     hub,
		Emitter: NewEmitter(store, hub),
	}
}

// Mount registers the live API on mux.
func (d *Dashboard) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/api/events", d.handleSSE)
	mux.HandleFunc("/api/live", d.handleRuns)
	mux.HandleFunc("/api/live/", d.handleRunDetail)
	mux.HandleFunc("/api/live/stats", d.handleStats)
}

// handleRuns handles GET /api/live
func (d *Dashboard) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, d.Store.ListRuns())
}

// handleRunDetail handles GET /api/live/{id} and GET /api/live/{id}/logs
func (d *Dashboard) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/live/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "logs" {
		d.handleLogs(w, r, id)
		return
	}

	run, ok := d.Store.GetRun(id)
	if !ok {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	respondJSON(w, run)
}

// handleLogs handles GET /api/live/{id}/logs?limit=N
func (d *Dashboard) handleLogs(w http.ResponseWriter, r *http.Request, id string) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	respondJSON(w, d.Store.GetLogs(id, limit))
}

// handleStats handles GET /api/live/stats
func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := d.Store.GetStats()
	stats.Clients = d.Hub.Count()
	respondJSON(w, stats)
}

// handleSSE handles GET /api/events
func (d *Dashboard) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	client, err := NewClient(w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	d.Hub.Register(client)
	defer d.Hub.Unregister(client)

	slog.Info("Event stream client connected")

	data, _ := json.Marshal(&Event{Type: "connected", Timestamp: time.Now()})
	client.send(data)

	go client.KeepAlive(30 * time.Second)

	// Block until the client disconnects.
	<-r.Context().Done()
	slog.Info("Event stream client disconnected")
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON", "error", err)
	}
}
