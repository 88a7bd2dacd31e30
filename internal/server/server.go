// Package server bridges the pointer engine to a browser over HTTP and
// WebSocket. The browser pushes fingertip samples, its layout and the
// global cooldown; the server broadcasts pointer, hover, progress and
// activation events back.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/dwellpoint/internal/pointer"
	"github.com/ayusman/dwellpoint/internal/store"
)

// MaxHistoryLimit caps GET /api/activations?limit=N.
const MaxHistoryLimit = 500

// Engine is the subset of *pointer.Engine the HTTP API drives.
type Engine interface {
	State() pointer.Snapshot
	SetEnabled(enabled bool)
	SetMirrored(mirrored bool)
	SetPointerGesture(name string)
}

// Config holds the server configuration. Routes whose dependencies are
// nil are not registered.
type Config struct {
	StaticDir string
	Engine    Engine
	Store     *store.Store
	Hub       *Hub
	Layout    *Layout
	Samples   SampleSink
	Cooldown  CooldownSink
	Preview   FramePublisher
}

// Server is the HTTP server for dwellpoint.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Engine != nil {
		s.mux.HandleFunc("/api/pointer", s.handlePointer)
	}

	if s.config.Hub != nil {
		ws := NewPointerHandler(s.config.Hub, s.config.Layout, s.config.Samples, s.config.Cooldown)
		s.mux.Handle("/api/pointer/ws", ws)
	}

	if s.config.Store != nil {
		s.mux.HandleFunc("/api/activations", s.handleActivations)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handlePointer reports the engine snapshot on GET and applies a
// PointerUpdate on POST.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.config.Engine.State())

	case http.MethodPost:
		var req PointerUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.PointerGesture != nil && *req.PointerGesture == "" {
			http.Error(w, "pointerGesture must not be empty", http.StatusBadRequest)
			return
		}

		e := s.config.Engine
		if req.PointerGesture != nil {
			e.SetPointerGesture(*req.PointerGesture)
		}
		if req.Mirrored != nil {
			e.SetMirrored(*req.Mirrored)
		}
		if req.Enabled != nil {
			e.SetEnabled(*req.Enabled)
		}
		writeJSON(w, http.StatusOK, e.State())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleActivations lists activation history, newest first.
func (s *Server) handleActivations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := store.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	records, err := s.config.Store.Activations().List(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*store.ActivationRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activations": records,
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.config.Hub != nil {
			s.config.Hub.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
