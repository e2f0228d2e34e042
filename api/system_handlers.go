package api

import (
	"context"
	"net/http"
	"time"

	"conduit/core"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse reports the state of the server's dependencies
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Database string `json:"database" example:"up"`
	Platform string `json:"platform,omitempty" example:"closed"`
	Time     string `json:"time"`
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Returns the health status of the service. The platform field is the state of the integration platform circuit breaker.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Database: "up",
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := a.health.HealthCheck(ctx); err != nil {
			LogWithRequestID(r.Context(), a.logger).Warnw("Database health check failed", "error", err)
			resp.Status = "unhealthy"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	if a.platform != nil {
		state := a.platform.BreakerState()
		resp.Platform = string(state)
		if state != core.CircuitBreakerStateClosed && status == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, status, resp)
}
