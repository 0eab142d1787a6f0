package handler

import (
	"context"
	"go-user-api/common"
	"go-user-api/logger"
	"net/http"
	"sort"
	"time"
)

// HealthCheckFunc reports whether a dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheckFunc
	timeout time.Duration
}

// NewHealthHandler returns a handler running checks by name. With no checks
// the endpoint only reports that the process is up.
func NewHealthHandler(checks map[string]HealthCheckFunc) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// HealthCheck godoc
// @Summary      Show the status of server
// @Description  get the status of server and its backing services
// @Tags         health
// @Produce      json
// @Success      200  {object}  common.APIResponse{data=map[string]string}
// @Failure      503  {object}  common.APIResponse{data=map[string]string}
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.Log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}

	message := "API is healthy and running"
	if code != http.StatusOK {
		message = "API is running with unavailable dependencies"
	}
	common.Respond(w, code, status, message)
}
