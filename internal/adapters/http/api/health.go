// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/levelrank/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthProvider reports whether the writer is accepting commands.
type HealthProvider interface {
	Started() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthProvider) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz requests. It answers 503 once the
// service stopped accepting writes.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	if !h.deps.Started() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "stopped"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
