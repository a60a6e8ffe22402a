package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"infinite-experiment/reconboard/internal/models/entities"
)

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Reports the run ledger, shared cache and poll scheduler state.
// @Tags Misc
// @Success 200 {object} entities.HealthCheckResponse
// @Router /healthCheck [get]
func (h *Handlers) HealthCheckHandler(upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)

		if h.deps.History != nil {
			status, details := "ok", "Run ledger connected"
			if err := h.deps.History.Ping(ctx); err != nil {
				status, details = "down", err.Error()
			}
			services["ledger"] = entities.ServiceStatus{Status: status, Details: details}
		}

		if h.deps.Redis != nil {
			status, details := "ok", "Redis connected"
			if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
				status, details = "down", err.Error()
			}
			services["redis"] = entities.ServiceStatus{Status: status, Details: details}
		}

		if h.deps.Events != nil {
			status, details := "ok", ""
			if n, err := h.deps.Events.StreamLength(ctx); err != nil {
				status, details = "down", err.Error()
			} else {
				details = fmt.Sprintf("%d events in stream", n)
			}
			services["run_events"] = entities.ServiceStatus{Status: status, Details: details}
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			UpSince:  upSince,
			Uptime:   time.Since(upSince).Round(time.Second).String(),
		}
		if h.deps.Polling != nil {
			resp.Poller = h.deps.Polling.PollerStatus()
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
