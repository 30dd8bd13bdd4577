package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stats exposes the counters reported by the health endpoints
type Stats interface {
	Jobs() int
	ActiveJobs() int
}

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	mongo     Pinger
	stats     Stats
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. mongo may be nil when
// history is disabled.
func NewHealthHandler(mongo Pinger, stats Stats, version string) *HealthHandler {
	return &HealthHandler{
		mongo:     mongo,
		stats:     stats,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	MongoDB       string `json:"mongodb"`
	Jobs          int    `json:"jobs"`
	ActiveJobs    int    `json:"active_jobs"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	MongoDB string `json:"mongodb"`
}

func (h *HealthHandler) mongoStatus(ctx context.Context) string {
	if h.mongo == nil {
		return "disabled"
	}
	if err := h.mongo.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// Health returns the service health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MongoDB:       h.mongoStatus(r.Context()),
		Jobs:          h.stats.Jobs(),
		ActiveJobs:    h.stats.ActiveJobs(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	mongoStatus := h.mongoStatus(r.Context())
	ready := mongoStatus != "disconnected"

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Ready:   ready,
		MongoDB: mongoStatus,
	})
}
