package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomoki/wallfeed/internal/api"
	"github.com/tomoki/wallfeed/internal/cache"
	"github.com/tomoki/wallfeed/internal/config"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/recommend"
	"github.com/tomoki/wallfeed/internal/repository"
	"github.com/tomoki/wallfeed/internal/storage"
	"github.com/tomoki/wallfeed/internal/syncer"
)

func main() {
	// Initialize logger first (environment-driven)
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	wallpaperRepo := repository.NewWallpaperRepository(db)
	statusRepo := repository.NewSyncStatusRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	feed := repository.NewCatalogFeed(wallpaperRepo, "", 100)

	// Initialize object storage for the original cache
	objectStorage, err := storage.NewStorage(&cfg.Cache)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize services
	originalCache := cache.New(wallpaperRepo, objectStorage, appLogger)
	tracker := recommend.NewTracker(interactionRepo, appLogger)
	scorer := recommend.NewScorer(wallpaperRepo, interactionRepo, cfg.Recommend, appLogger)

	providers := syncer.BuildProviders(&cfg.Providers, &cfg.Sync)
	orchestrator := syncer.New(wallpaperRepo, statusRepo, providers, feed, appLogger, syncer.Config{
		MaxPerProvider:  cfg.Sync.MaxPerProvider,
		ProviderDelay:   cfg.Sync.ProviderDelay,
		RetryAttempts:   cfg.Sync.RetryAttempts,
		RetryBaseDelay:  cfg.Sync.RetryBaseDelay,
		RetentionDays:   cfg.Sync.RetentionDays,
		BreakerFailures: cfg.Sync.BreakerFailures,
	})

	// Setup router
	router := api.SetupRouter(api.Services{
		Syncer:     orchestrator,
		SyncStatus: statusRepo,
		Catalog:    wallpaperRepo,
		Cache:      originalCache,
		Scorer:     scorer,
		Tracker:    tracker,
	}, &cfg.Server, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
