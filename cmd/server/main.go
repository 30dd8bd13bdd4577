package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dandantas/tendril/internal/config"
	"github.com/dandantas/tendril/internal/database"
	"github.com/dandantas/tendril/internal/handler"
	"github.com/dandantas/tendril/internal/model"
	"github.com/dandantas/tendril/internal/render"
	"github.com/dandantas/tendril/internal/scheduler"
	"github.com/dandantas/tendril/internal/service"
	"github.com/dandantas/tendril/internal/webhook"
	"github.com/dandantas/tendril/internal/worker"
	"github.com/dandantas/tendril/pkg/middleware"
)

const version = "1.0.0"

func main() {
	startedAt := time.Now()

	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting Tendril", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer, err := render.New(cfg.RenderFormat, cfg.RenderWidth, cfg.RenderHeight)
	if err != nil {
		slog.Error("Failed to create renderer", "error", err)
		os.Exit(1)
	}

	registry := model.NewJobRegistry(cfg.RegistryRetention)
	supervisor := worker.NewSupervisor()

	generator := service.NewGenerator(service.GeneratorConfig{
		TotalSteps:    cfg.TotalSteps,
		MaxTotalSteps: cfg.MaxTotalSteps,
		PacingDelay:   cfg.PacingDelay,
		Seed:          cfg.RandomSeed,
	}, registry, supervisor, renderer)

	// Optional generation history
	var (
		db             *database.MongoDB
		historyService *service.HistoryService
		mongoPinger    handler.Pinger
	)
	if cfg.HistoryEnabled() {
		db, err = database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect from MongoDB", "error", err)
			}
		}()

		if err := database.CreateIndexes(ctx, db); err != nil {
			slog.Error("Failed to create indexes", "error", err)
			os.Exit(1)
		}

		historyService = service.NewHistoryService(database.NewHistoryRepository(db))
		generator.SetHistory(historyService)
		mongoPinger = db
	} else {
		slog.Info("Generation history disabled, MONGO_URI is empty")
	}

	// Optional completion webhook
	if cfg.CompletionWebhookURL != "" {
		generator.SetNotifier(webhook.NewNotifier(webhook.Config{
			URL:     cfg.CompletionWebhookURL,
			Timeout: cfg.WebhookTimeout,
			Retry:   webhook.RetryPolicy{MaxAttempts: cfg.WebhookMaxAttempts},
		}))
	}

	// Registry janitor, only needed when entries expire
	var janitor *scheduler.Janitor
	if cfg.RegistryRetention > 0 {
		janitor, err = scheduler.NewJanitor(registry, cfg.RegistrySweepSchedule)
		if err != nil {
			slog.Error("Failed to create registry janitor", "error", err)
			os.Exit(1)
		}
		janitor.Start()
	}

	// Initialize handlers
	generationHandler := handler.NewGenerationHandler(generator)
	historyHandler := handler.NewHistoryHandler(historyService)
	healthHandler := handler.NewHealthHandler(mongoPinger, generator, version)

	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	router := handler.NewRouter(generationHandler, historyHandler, healthHandler, corsConfig)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before cancelling jobs
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Stopping generation jobs...", "active", supervisor.Active())
	if err := supervisor.Stop(shutdownCtx); err != nil {
		slog.Warn("Timeout waiting for generation jobs", "active", supervisor.Active(), "error", err)
	}

	if janitor != nil {
		janitor.Stop(shutdownCtx)
	}

	slog.Info("Tendril stopped", "uptime", time.Since(startedAt).Round(time.Second))
}
