package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/histochat/backend/pkg/config"
	"github.com/histochat/backend/pkg/di"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/observability"
	"github.com/histochat/backend/pkg/router"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	appLog := logger.New(logConfig)
	logger.SetGlobal(appLog)

	appLog.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	// Observability: tracing to stdout, metrics on their own listener
	shutdownTracing := observability.SetupTracing("histochat-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(":2112")

	// Initialize dependency injection container
	container, err := di.New(cfg, appLog)
	if err != nil {
		appLog.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router. OpenAPI validation must be attached before
	// the routes are registered or gin never runs it for them.
	r := router.New(container)

	schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH")
	if schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		appLog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.LogError(err, "Server forced to shutdown")
	}

	appLog.Info("Server exited gracefully")
}
