package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"telematics-monitor/internal/engine"
)

// Server exposes the engine's read-only query surface over HTTP. Ingest
// never flows through here; the API is an observer.
type Server struct {
	monitor *engine.Monitor
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates an API server over the monitor. The registry backs the
// /metrics endpoint.
func NewServer(monitor *engine.Monitor, reg *prometheus.Registry, log *zap.Logger) *Server {
	s := &Server{
		monitor: monitor,
		router:  mux.NewRouter(),
		log:     log,
	}
	s.setupRoutes(reg)
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/v1/vehicles", s.handleListVehicles).Methods("GET")
	s.router.HandleFunc("/api/v1/vehicles/{id}/analytics", s.handleAnalytics).Methods("GET")
	s.router.HandleFunc("/api/v1/vehicles/{id}/anomalies", s.handleAnomalies).Methods("GET")
	s.router.HandleFunc("/api/v1/alerts/critical", s.handleCritical).Methods("GET")
	s.router.HandleFunc("/api/v1/geofences", s.handleGeofences).Methods("GET")
	s.router.HandleFunc("/api/v1/status", s.handleStatus).Methods("GET")

	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.VehicleSummaries())
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	analytics, ok := s.monitor.Analytics(id)
	if !ok {
		respondError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid vehicle id")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	respondJSON(w, http.StatusOK, s.monitor.Anomalies(id, limit))
}

func (s *Server) handleCritical(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Critical())
}

func (s *Server) handleGeofences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Geofences())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.monitor.Status())
}
