// Package http exposes a running experiment for inspection: variables,
// items, the item graph, lifecycle events, pause/resume control and
// metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/internal/runtime"
	"github.com/aretw0/sesame/pkg/domain"
)

// Experiment is the read-only view the inspector serves.
type Experiment interface {
	// VarList lists variables whose name or value contains filter.
	VarList(filter string) []domain.VarInfo
	// ItemTypes maps item names to their types.
	ItemTypes() map[string]string
	// Mermaid renders the item graph.
	Mermaid() string
}

// Controller pauses and resumes runs.
type Controller interface {
	Paused() (runtime.PauseState, bool)
	Resume() bool
}

// Server serves the inspector API.
type Server struct {
	Experiment Experiment
	Controller Controller
	Streams    *StreamManager
	Version    string

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion is reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// NewServer creates a server. ctl may be nil when nothing runs.
func NewServer(exp Experiment, ctl Controller, opts ...Option) *Server {
	s := &Server{
		Experiment: exp,
		Controller: ctl,
		Streams:    NewStreamManager(),
		Version:    "dev",
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/vars", s.GetVars)
	r.Get("/items", s.GetItems)
	r.Get("/graph", s.GetGraph)
	r.Get("/pause", s.GetPause)
	r.Post("/resume", s.PostResume)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "sesame-inspect",
		"version": s.Version,
	})
}

// GetVars handles GET /vars?filter=.
func (s *Server) GetVars(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Experiment.VarList(r.URL.Query().Get("filter")))
}

// GetItems handles GET /items.
func (s *Server) GetItems(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Experiment.ItemTypes())
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.Experiment.Mermaid())
}

// GetPause handles GET /pause.
func (s *Server) GetPause(w http.ResponseWriter, r *http.Request) {
	var st runtime.PauseState
	if s.Controller != nil {
		st, _ = s.Controller.Paused()
	}
	s.writeJSON(w, http.StatusOK, st)
}

// PostResume handles POST /resume.
func (s *Server) PostResume(w http.ResponseWriter, r *http.Request) {
	if s.Controller == nil || !s.Controller.Resume() {
		http.Error(w, "not paused", http.StatusConflict)
		return
	}
	s.logger.Info("Resume requested over HTTP")
	w.WriteHeader(http.StatusAccepted)
}

// SubscribeEvents handles GET /events as a server-sent event stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every event as JSON.
func (s *Server) Hooks() domain.LifecycleHooks {
	send := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Warn("Failed to encode event", "err", err)
			return
		}
		s.Streams.Broadcast(string(data))
	}
	return domain.LifecycleHooks{
		OnRunStart:  func(_ context.Context, e *domain.RunEvent) { send(e) },
		OnRunEnd:    func(_ context.Context, e *domain.RunEvent) { send(e) },
		OnItemEnter: func(_ context.Context, e *domain.ItemEvent) { send(e) },
		OnItemLeave: func(_ context.Context, e *domain.ItemEvent) { send(e) },
		OnCleanup:   func(_ context.Context, e *domain.CleanupEvent) { send(e) },
		OnPause:     func(_ context.Context, e *domain.EventBase) { send(e) },
	}
}
