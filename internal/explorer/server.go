// Package explorer serves the run history over a small JSON API: listing,
// run detail, diffs between runs, and aggregate stats.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/snarlhq/snarl/internal/patterns"
)

// Config holds explorer server configuration.
type Config struct {
	ListenAddr string // e.g. ":8086"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{ListenAddr: ":8086"}
}

// Explorer is the run history web explorer.
type Explorer struct {
	config *Config
	store  *Store
	server *http.Server
}

// New creates a fully wired explorer. Extra mount functions are applied to
// the same mux, so the live event API can share the listener.
func New(config *Config, store *Store, extras ...func(mux *http.ServeMux)) *Explorer {
	e := &Explorer{
		config: config,
		store:  store,
	}

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/runs", e.handleRuns)
	mux.HandleFunc("/api/runs/", e.handleRunDetail)
	mux.HandleFunc("/api/diff", e.handleDiff)
	mux.HandleFunc("/api/stats", e.handleStats)
	mux.HandleFunc("/api/health", e.handleHealth)
	mux.HandleFunc("/api/rescan", e.handleRescan)

	for _, mount := range extras {
		mount(mux)
	}

	handler := corsMiddleware(loggingMiddleware(mux))

	// No write timeout: /api/events holds streaming connections open.
	e.server = &http.Server{
		Addr:        config.ListenAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return e
}

// Handler returns the explorer's HTTP handler, middleware included.
func (e *Explorer) Handler() http.Handler {
	return e.server.Handler
}

// Start begins serving.
func (e *Explorer) Start() error {
	slog.Info("Starting run explorer", "addr", e.config.ListenAddr, "runs", e.store.RunCount())
	if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("explorer server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (e *Explorer) Stop(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

// handleRuns handles GET /api/runs
func (e *Explorer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, e.store.List())
}

// handleRunDetail handles GET /api/runs/{id} and GET /api/runs/{id}/patterns
func (e *Explorer) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	run, err := e.store.Get(parts[0])
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if len(parts) == 2 && parts[1] == "patterns" {
		if run.Result == nil {
			respondJSON(w, []patterns.DetectedPattern{})
			return
		}
		respondJSON(w, run.Result.Patterns)
		return
	}

	respondJSON(w, run)
}

// handleDiff handles GET /api/diff?old={ref}&new={ref}
func (e *Explorer) handleDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	oldRef := r.URL.Query().Get("old")
	newRef := r.URL.Query().Get("new")
	if oldRef == "" || newRef == "" {
		http.Error(w, "Both old and new run refs required", http.StatusBadRequest)
		return
	}

	diff, err := e.store.Diff(oldRef, newRef)
	if err != nil {
		http.Error(w, fmt.Sprintf("Diff failed: %v", err), http.StatusNotFound)
		return
	}
	respondJSON(w, diff)
}

// handleStats handles GET /api/stats
func (e *Explorer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, e.store.Stats())
}

// handleHealth handles GET /api/health
func (e *Explorer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, map[string]interface{}{
		"status":    "ok",
		"time":      time.Now().Format(time.RFC3339),
		"run_count": e.store.RunCount(),
	})
}

// handleRescan handles POST /api/rescan - reloads the index so runs written
// by other processes become visible.
func (e *Explorer) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := e.store.Reload(); err != nil {
		http.Error(w, fmt.Sprintf("Rescan failed: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"status":    "ok",
		"run_count": e.store.RunCount(),
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON", "error", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
