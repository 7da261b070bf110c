package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chamberhub/campaigns/internal/models/entities"
)

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Pings Postgres and, when configured, Redis.
// @Tags Misc
// @Success 200 {object} entities.HealthCheckResponse
// @Router /healthCheck [get]
func HealthCheckHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)

		// Check postgres
		pgstatus := "ok"
		pgDetails := "Postgres Connected"
		pgStart := time.Now()
		if deps.SQL == nil {
			pgstatus = "down"
			pgDetails = "no database handle"
		} else if err := deps.SQL.PingContext(ctx); err != nil {
			pgstatus = "down"
			pgDetails = err.Error()
		}
		services["postgres"] = entities.ServiceStatus{
			Status:    pgstatus,
			Details:   pgDetails,
			LatencyMS: time.Since(pgStart).Milliseconds(),
		}

		if deps.Redis != nil {
			redisStatus := "ok"
			redisDetails := "Redis Connected"
			redisStart := time.Now()
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = "down"
				redisDetails = err.Error()
			}
			services["redis"] = entities.ServiceStatus{
				Status:    redisStatus,
				Details:   redisDetails,
				LatencyMS: time.Since(redisStart).Milliseconds(),
			}
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
			UpSince:  deps.UpSince,
			Uptime:   time.Since(deps.UpSince).Round(time.Second).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		if overallStatus != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
