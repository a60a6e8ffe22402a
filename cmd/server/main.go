package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"infinite-experiment/reconboard/internal/api"
	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/routes"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file (RECON_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("❌ Invalid server config: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Reconboard starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if cfg.IsProduction() && slices.Contains(cfg.HTTP.AllowedOrigins, "*") {
		logging.Warn("CORS allows every origin in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsReg := metrics.NewMetricsRegistry(registry)

	deps, err := api.InitDependencies(ctx, cfg, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err)
	}

	upSince := time.Now()
	router := routes.RegisterRoutes(deps, cfg.HTTP, cfg.RateLimit, registry, metricsReg, upSince)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.HTTP.Addr, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("HTTP shutdown did not complete", "error", err)
	}
	if err := deps.Close(); err != nil {
		logging.Warn("Failed to release dependencies", "error", err)
	}
	logging.Info("Reconboard stopped")
}
