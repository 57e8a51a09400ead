package httpx

import (
	"context"
	"net/http"
)

// HealthChecker reports the health of a downstream dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) error

// Health implements HealthChecker.
func (f HealthCheckerFunc) Health(ctx context.Context) error { return f(ctx) }

// HealthHandlers provides liveness and readiness endpoints.
type HealthHandlers struct {
	// Checks maps a dependency name to its checker. Nil checkers are skipped.
	Checks map[string]HealthChecker
}

// Live reports process liveness.
// GET /health/live.
func (h *HealthHandlers) Live(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness of downstream dependencies.
// GET /health/ready.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if check == nil {
			continue
		}
		if err := check.Health(r.Context()); err != nil {
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	WriteJSON(w, status, map[string]any{
		"status":       http.StatusText(status),
		"dependencies": deps,
	})
}
