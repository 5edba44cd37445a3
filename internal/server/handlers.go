package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/VyvaHart/system-load-demonstrator/internal/load"

	"go.uber.org/zap"
)

// handleLoad runs one load request. Malformed parameters are a 400; stressor failures are reported in a 200 body.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := load.ParseRequest(r.URL.Query(), s.engine.Limits())
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, load.ErrInvalidParameter) {
			status = http.StatusInternalServerError
		}
		s.logger.Info("Rejected load request",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, err.Error())
		return
	}

	res := s.engine.Run(r.Context(), "/load", req)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type infoResponse struct {
	Service        string           `json:"service"`
	Version        string           `json:"version"`
	Modes          []load.Mode      `json:"modes"`
	Algorithms     []load.Algorithm `json:"cpu_algorithms"`
	Defaults       load.Request     `json:"defaults"`
	Limits         infoLimits       `json:"limits"`
	TempDir        string           `json:"temp_dir"`
	Collectors     int              `json:"collectors"`
	ScrapeInterval string           `json:"collection_interval"`
	RateLimit      float64          `json:"rate_limit_rps"`
	Tracing        bool             `json:"tracing_enabled"`
}

type infoLimits struct {
	MaxIterations   int     `json:"max_iterations"`
	MaxDataSizeMB   int     `json:"max_data_size_mb"`
	MaxCPUTaskScale int     `json:"max_cpu_task_scale"`
	MaxCPUWork      float64 `json:"max_cpu_work"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	limits := s.engine.Limits()
	s.writeJSON(w, http.StatusOK, infoResponse{
		Service:    s.config.App.Name,
		Version:    s.config.App.Version,
		Modes:      load.Modes,
		Algorithms: load.Algorithms,
		Defaults:   load.DefaultRequest(),
		Limits: infoLimits{
			MaxIterations:   limits.MaxIterations,
			MaxDataSizeMB:   limits.MaxDataSizeMB,
			MaxCPUTaskScale: limits.MaxCPUTaskScale,
			MaxCPUWork:      limits.MaxCPUWork,
		},
		TempDir:        s.config.Load.TempDir,
		Collectors:     len(s.collectors),
		ScrapeInterval: s.config.Metrics.ScratchInterval.String(),
		RateLimit:      s.config.RateLimit.RequestsPerSecond,
		Tracing:        s.config.Tracing.Enabled(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
