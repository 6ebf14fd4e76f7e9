// Package api exposes the operational HTTP surface: health, metrics,
// and the last run's report.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/metrics"
)

// Server holds the ops handlers and the most recent run report.
type Server struct {
	logger *zap.Logger

	mu      sync.RWMutex
	lastRun any
}

// NewServer builds the ops server.
func NewServer(logger *zap.Logger) *Server {
	return &Server{logger: logger}
}

// SetLastRun stores the report served at /v1/lastrun.
func (s *Server) SetLastRun(report any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = report
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/v1/lastrun", s.handleLastRun)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	report := s.lastRun
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, `{"error":"no run completed yet"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Warn("encode last run report", zap.Error(err))
	}
}
