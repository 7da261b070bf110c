package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chamberhub/campaigns/internal/api"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/config"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/jobs"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/routes"
	"chamberhub/campaigns/internal/workers"

	"github.com/redis/go-redis/v9"
)

// @title Campaigns API
// @version 1.0
// @description Backend for chamber fundraising campaigns.
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Campaigns service starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	// Connect to DB with sqlx
	if err := db.InitPostgres(cfg.Postgres.DSN()); err != nil {
		logging.Error("Failed to connect to Postgres (sqlx)", "error", err.Error())
		log.Fatalf("Failed to connect to Postgres (sqlx): %v", err)
	}
	logging.Info("Connected to Postgres (sqlx)")

	// Connect to DB with GORM
	gormDB, err := db.InitPostgresORM(cfg.Postgres.DSN(), cfg.AppEnv)
	if err != nil {
		logging.Error("Failed to connect to Postgres (GORM)", "error", err.Error())
		log.Fatalf("Failed to connect to Postgres (GORM): %v", err)
	}
	if cfg.AppEnv != "production" {
		if err := db.AutoMigrate(gormDB); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = common.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
	}

	deps := api.InitDependencies(cfg, gormDB, db.DB, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, _ := deps.Services.Events.(*common.RedisEventStream)
	workers.InitWorkers(ctx, stream, cfg.NotificationWorkers)
	jobs.InitializeJobs(ctx, deps.Services.Campaigns, cfg.CampaignJobInterval)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes.RegisterRoutes(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.Addr, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err.Error())
	}
}
