package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/iscsitgt/internal/controlplane/store"
	"github.com/marmos91/iscsitgt/internal/target/portal"
	"github.com/marmos91/iscsitgt/internal/target/session"
)

// HealthCheckTimeout is the maximum time allowed for health check operations.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the target ready to accept logins?
//   - Stores: Can the control-plane store be reached?
type HealthHandler struct {
	targets   *portal.Registry
	sessions  *session.Registry
	cpStore   store.Store
	startTime time.Time
}

// NewHealthHandler creates a new health handler. targets and sessions may
// be nil only in tests; cpStore may be nil, in which case store health
// always reports unhealthy.
func NewHealthHandler(targets *portal.Registry, sessions *session.Registry, cpStore store.Store) *HealthHandler {
	return &HealthHandler{
		targets:   targets,
		sessions:  sessions,
		cpStore:   cpStore,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health - simple liveness probe.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"service":    "iscsitgtd",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe. Returns 200 OK if
// the target registry is initialized.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.targets == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("target registry not initialized"))
		return
	}

	stats := h.sessions.Stats()
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"targets":         len(h.targets.List()),
		"active_sessions": stats.ActiveSessions,
	}))
}

// StoreHealth represents the health status of a single backing store.
type StoreHealth struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// StoresResponse represents the detailed store health response.
type StoresResponse struct {
	ControlPlaneStore StoreHealth `json:"control_plane_store"`
}

// Stores handles GET /health/stores - detailed backing-store health.
func (h *HealthHandler) Stores(w http.ResponseWriter, r *http.Request) {
	if h.cpStore == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("control-plane store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	_, err := h.cpStore.ListTargets(ctx)
	latency := time.Since(start)

	health := StoreHealth{
		Name:    "control-plane",
		Type:    "sql",
		Latency: latency.String(),
	}
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(StoresResponse{ControlPlaneStore: health}))
		return
	}

	health.Status = "healthy"
	writeJSON(w, http.StatusOK, healthyResponse(StoresResponse{ControlPlaneStore: health}))
}
