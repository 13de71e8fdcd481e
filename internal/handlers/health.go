package handlers

import (
	"net/http"
	"time"

	"github.com/juju/clock"

	"github.com/contractpro/contractpro/httpx"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	clock       clock.Clock
	environment string
	ping        func() error
}

// NewHealthHandler reports readiness through ping, usually a database ping.
func NewHealthHandler(clk clock.Clock, environment string, ping func() error) *HealthHandler {
	return &HealthHandler{clock: clk, environment: environment, ping: ping}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "ContractPro API is running",
		"timestamp":   h.clock.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
			return
		}
	}
	httpx.OK(w, http.StatusOK, map[string]string{"database": "ok"}, "ready")
}

// NotFound answers any unrouted path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	httpx.JSONError(w, http.StatusNotFound, "Route "+r.URL.Path+" not found", nil)
}
