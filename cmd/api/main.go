package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"device-fleet-api/internal/admin"
	"device-fleet-api/internal/config"
	"device-fleet-api/internal/database"
	"device-fleet-api/internal/handler"
	"device-fleet-api/internal/logger"
	"device-fleet-api/internal/metrics"
	"device-fleet-api/internal/repository"
	"device-fleet-api/internal/router"
	"device-fleet-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoSchema {
		if err := database.EnsureSchema(context.Background(), db); err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
		log.Info("Database schema ensured")
	}

	store := repository.NewStore(db)
	m := metrics.New(cfg.Metrics.Prefix)

	telemetry := service.NewTelemetryService(repository.NewTelemetryRepository(store), m, log)

	registry, err := admin.NewFleetRegistry(store, m)
	if err != nil {
		log.Fatal("Failed to build admin registry", zap.Error(err))
	}

	r := router.NewRouter(router.Handlers{
		Telemetry: handler.NewTelemetryHandler(telemetry, cfg.ServiceName, log),
		Admin:     handler.NewAdminHandler(registry, cfg.ServiceName, log),
		Health:    handler.NewHealthHandler(db, cfg.ServiceName, log),
	}, cfg, m, log)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Starting server",
			zap.Int("port", cfg.Port),
			zap.Int("admin_rate_limit_rps", cfg.Security.RateLimitRPS),
			zap.Int("admin_rate_limit_burst", cfg.Security.RateLimitBurst),
			zap.Bool("cors", cfg.Security.EnableCORS),
			zap.Duration("request_timeout", cfg.Security.RequestTimeout),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-done
	log.Info("Server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Security.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	} else {
		log.Info("Server exited gracefully")
	}
}
