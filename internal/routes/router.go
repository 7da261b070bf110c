package routes

import (
	"net/http"

	"chamberhub/campaigns/internal/api"
	"chamberhub/campaigns/internal/config"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes builds the HTTP handler over already initialised
// dependencies.
func RegisterRoutes(cfg *config.Config, deps *api.Dependencies) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	metricsReg := metrics.Get()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	if cfg.AppEnv != "production" {
		r.Use(middleware.Logging)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// ops
	r.Get("/healthCheck", api.HealthCheckHandler(deps))
	r.Handle("/metrics", promhttp.Handler())

	publicLimiter := middleware.NewIPRateLimiter(cfg.PublicRateRPS, cfg.PublicRateBurst)
	RegisterAPIRoutes(r, metricsReg, deps, publicLimiter)

	logging.Info("Router initialized with metrics and logging middleware")
	return r
}
