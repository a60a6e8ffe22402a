package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"infinite-experiment/reconboard/internal/api"
	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/middleware"
)

func RegisterRoutes(
	deps *api.Dependencies,
	cfg config.HTTPConfig,
	limits config.RateLimitConfig,
	gatherer prometheus.Gatherer,
	metricsReg *metrics.MetricsRegistry,
	upSince time.Time,
) http.Handler {
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logging)
	r.Use(middleware.MetricsMiddleware(metricsReg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	handlers := api.NewHandlers(deps)

	r.Get("/healthCheck", handlers.HealthCheckHandler(upSince))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	limiter := middleware.NewRateLimiter(limits.RPS, limits.Burst, "127.0.0.1", "::1")
	RegisterAPIRoutes(r, handlers, limiter)

	logging.Info("Router initialized", "allowed_origins", cfg.AllowedOrigins)
	return r
}
