// Package http exposes the engine's operational endpoints and the read-only
// query surface consumed by the dashboard and map layers. Handlers only ever
// read tracker snapshots; they cannot mutate region state.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/analytics"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StateReader is the snapshot handle into the region tracker.
type StateReader interface {
	Snapshot(region string) (tracker.RegionSnapshot, bool)
	Snapshots() []tracker.RegionSnapshot
}

// Server exposes health, readiness, metrics, and region query endpoints.
type Server struct {
	httpServer    *http.Server
	states        StateReader
	trendLookback time.Duration
	logger        *slog.Logger
}

// NewServer creates the HTTP server with operational and query routes.
func NewServer(addr string, ready ReadinessChecker, states StateReader, trendLookback time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		states:        states,
		trendLookback: trendLookback,
		logger:        logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/regions/{region}", s.handleRegion)
	mux.HandleFunc("GET /api/v1/regions/{region}/history", s.handleRegionHistory)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)

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

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.states.Snapshots())
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.states.Snapshot(r.PathValue("region"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown region"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRegionHistory(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.states.Snapshot(r.PathValue("region"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown region"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region":  snap.Region,
		"history": snap.History,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	summary := analytics.Summarize(s.states.Snapshots(), s.trendLookback)
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
