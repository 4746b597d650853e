package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfrederiksen/typhoon/internal/filter"
	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StateProvider supplies the latest known statuses.
type StateProvider interface {
	ReadinessChecker
	State() State
}

// Server exposes the status API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	provider   StateProvider
	logger     *slog.Logger
}

// statusResponse is the /api/status body.
type statusResponse struct {
	status.FetchResult
	EncodingLabel string    `json:"encoding_label"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastOutcome   string    `json:"last_outcome,omitempty"`
	LastPollAt    time.Time `json:"last_poll_at,omitzero"`
	Filter        string    `json:"filter,omitempty"`
}

// cityResponse is the /api/cities/{city} body.
type cityResponse struct {
	City      string   `json:"city"`
	Status    string   `json:"status"`
	Display   string   `json:"display"`
	Lines     []string `json:"lines"`
	Suspended bool     `json:"suspended"`
}

// NewServer creates an HTTP server for the given provider. log may be nil.
func NewServer(addr string, provider StateProvider, log *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		logger:   logger.OrDefault(log),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(provider))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/cities", s.handleCities)
	mux.HandleFunc("GET /api/cities/{city}", s.handleCity)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, ok := s.latest(w)
	if !ok {
		return
	}

	f, err := filter.Parse(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := state.Result
	result.CityStatuses = f.Apply(result.CityStatuses)

	resp := statusResponse{
		FetchResult:   result,
		EncodingLabel: result.EncodingLabel(),
		UpdatedAt:     state.UpdatedAt,
		LastOutcome:   string(state.LastOutcome),
		LastPollAt:    state.LastPollAt,
	}
	if !f.IsEmpty() {
		resp.Filter = f.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	state, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"cities": state.Result.Cities()})
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	state, ok := s.latest(w)
	if !ok {
		return
	}

	cs, found := state.Result.Lookup(r.PathValue("city"))
	if !found {
		writeError(w, http.StatusNotFound, "city not found")
		return
	}

	lines := cs.Lines()
	if lines == nil {
		lines = []string{}
	}

	writeJSON(w, http.StatusOK, cityResponse{
		City:      cs.City,
		Status:    cs.Status,
		Display:   cs.Display(),
		Lines:     lines,
		Suspended: cs.Suspended(),
	})
}

// latest writes a 503 and returns false when nothing has been fetched yet.
func (s *Server) latest(w http.ResponseWriter) (State, bool) {
	state := s.provider.State()
	if !state.HasResult() {
		writeError(w, http.StatusServiceUnavailable, ErrNotReady.Error())
		return state, false
	}
	return state, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
