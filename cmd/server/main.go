package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/api"
	"github.com/epw80/document-tracking-platform/pkg/config"
	"github.com/epw80/document-tracking-platform/pkg/ingest"
	"github.com/epw80/document-tracking-platform/pkg/lifecycle"
	"github.com/epw80/document-tracking-platform/pkg/notify"
	"github.com/epw80/document-tracking-platform/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup logger with configured level
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Info("loaded configuration",
		slog.String("port", cfg.Port),
		slog.String("table", cfg.TrackingTable),
		slog.String("dynamodb_endpoint", cfg.DynamoDBEndpoint),
		slog.String("dynamodb_region", cfg.DynamoDBRegion),
		slog.Int("list_shard_count", cfg.ListShardCount),
		slog.String("kafka_brokers", cfg.KafkaBrokers),
		slog.String("log_level", cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracking repository
	repo, err := storage.NewDynamoDBRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()

	// Event feed hub
	hub := notify.New(logger)
	go hub.Run()

	// Lifecycle service
	service := lifecycle.NewService(repo, hub, cfg.ListShardCount, cfg.RetentionDays, logger)

	// Upload-notification consumer (optional)
	var consumer *ingest.Consumer
	if cfg.KafkaBrokers != "" {
		consumer = ingest.NewConsumer(cfg, service, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("upload consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// HTTP server
	router := api.NewRouter(&api.Handler{
		Service: service,
		Hub:     hub,
		Logger:  logger,
	})
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close consumer", slog.String("error", err.Error()))
		}
	}

	hub.Shutdown()

	logger.Info("server exited")
}
