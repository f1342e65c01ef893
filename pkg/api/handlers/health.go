package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether a dependency is usable. The layer source
// implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	source    HealthChecker
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. source may be nil, in
// which case readiness always fails.
func NewHealthHandler(source HealthChecker) *HealthHandler {
	return &HealthHandler{source: source, startedAt: time.Now()}
}

// LivenessInfo is the liveness payload.
type LivenessInfo struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeSec int64     `json:"uptime_sec"`
}

// Liveness handles GET /health. It succeeds as long as the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(LivenessInfo{
		Service:   "oceancache",
		StartedAt: h.startedAt.UTC(),
		Uptime:    uptime.Truncate(time.Second).String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// SourceHealth is the readiness payload.
type SourceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
}

// Readiness handles GET /health/ready. It checks the layer source and
// returns 503 when it cannot serve fetches.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("layer source not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.source.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("layer source: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(SourceHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}))
}
