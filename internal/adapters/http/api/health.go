package api

import (
	"net/http"

	"github.com/okian/scout/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readiness reports whether the inference artifacts are loaded.
type Readiness interface {
	Ready() bool
}

// HealthHandler handles liveness and metrics requests.
type HealthHandler struct {
	readiness Readiness
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(r Readiness) *HealthHandler {
	return &HealthHandler{readiness: r}
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

// HandleHealth handles GET /healthz. The process is alive whenever it can
// answer; "ready" tells whether predictions can be served yet.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ready := h.readiness != nil && h.readiness.Ready()
	status := "ok"
	if !ready {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Ready: ready})
}

// MetricsHandler serves the custom Prometheus registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
