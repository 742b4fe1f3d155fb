package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomoki/wallfeed/internal/config"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/recommend"
	"github.com/tomoki/wallfeed/internal/repository"
	"github.com/tomoki/wallfeed/internal/syncer"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "wallfeed-sync",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	prune := flag.Bool("prune", false, "Prune old interactions and weekly stats after syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	wallpaperRepo := repository.NewWallpaperRepository(db)
	statusRepo := repository.NewSyncStatusRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)

	providers := syncer.BuildProviders(&cfg.Providers, &cfg.Sync)
	orchestrator := syncer.New(wallpaperRepo, statusRepo, providers, nil, appLogger, syncer.Config{
		MaxPerProvider:  cfg.Sync.MaxPerProvider,
		ProviderDelay:   cfg.Sync.ProviderDelay,
		RetryAttempts:   cfg.Sync.RetryAttempts,
		RetryBaseDelay:  cfg.Sync.RetryBaseDelay,
		RetentionDays:   cfg.Sync.RetentionDays,
		BreakerFailures: cfg.Sync.BreakerFailures,
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		"providers": len(providers),
	}).Info("Starting catalog sync")

	count, err := orchestrator.PerformSync(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Sync failed")
	}
	appLogger.WithFields(logger.Fields{
		"new_count": count,
	}).Info("Sync completed")

	if *prune {
		tracker := recommend.NewTracker(interactionRepo, appLogger)
		if err := tracker.Prune(ctx, 90*24*time.Hour, 4); err != nil {
			appLogger.WithError(err).Fatal("Prune failed")
		}
		appLogger.Info("Prune completed")
	}
}
