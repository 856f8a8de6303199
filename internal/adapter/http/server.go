// Package http exposes the service over HTTP: the feels-like query
// endpoints plus health, readiness, and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/service"
)

// maxBatchRegions caps one batch request.
const maxBatchRegions = 100

// FeelsAPI is the service surface the handlers call.
type FeelsAPI interface {
	Report(ctx context.Context, region, areaNo string) (service.FeelsReport, error)
	Batch(ctx context.Context, regions []string) []service.FeelsReport
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessFunc adapts a function to the ReadinessChecker interface.
type ReadinessFunc func(ctx context.Context) error

// CheckReadiness implements ReadinessChecker.
func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Server exposes the HTTP API.
type Server struct {
	httpServer *http.Server
	api        FeelsAPI
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the query and operational routes.
func NewServer(addr string, api FeelsAPI, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/feels", s.handleFeels)
	mux.HandleFunc("POST /v1/feels/batch", s.handleFeelsBatch)

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

func (s *Server) handleFeels(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "region query parameter is required"})
		return
	}
	areaNo := r.URL.Query().Get("areaNo")

	report, err := s.api.Report(r.Context(), region, areaNo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, service.ErrUnresolved):
		writeJSON(w, http.StatusNotFound, report)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, report)
	default:
		s.logger.Error("feels report failed", "region", region, "error", err)
		writeJSON(w, http.StatusInternalServerError, report)
	}
}

type batchRequest struct {
	Regions []string `json:"regions"`
}

type batchResponse struct {
	Results []service.FeelsReport `json:"results"`
}

func (s *Server) handleFeelsBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(req.Regions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "regions must not be empty"})
		return
	}
	if len(req.Regions) > maxBatchRegions {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many regions"})
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Results: s.api.Batch(r.Context(), req.Regions)})
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
