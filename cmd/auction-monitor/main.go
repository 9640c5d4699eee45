package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/TheOneAtFault/auction-monitor/internal/api"
	"github.com/TheOneAtFault/auction-monitor/internal/app"
	"github.com/TheOneAtFault/auction-monitor/internal/config"
	"github.com/TheOneAtFault/auction-monitor/internal/notify"
	"github.com/TheOneAtFault/auction-monitor/internal/observability"
	"github.com/TheOneAtFault/auction-monitor/internal/scraper"
	"github.com/TheOneAtFault/auction-monitor/internal/storage"
	"github.com/TheOneAtFault/auction-monitor/internal/storage/mssql"
	"github.com/TheOneAtFault/auction-monitor/internal/storage/sqlite"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)
	defer logger.Sync()

	repo, err := openRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", "driver", cfg.Storage.Driver, "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err.Error())
		}
	}()

	ctx, cancel := app.SignalContext(logger)
	defer cancel()

	strategy := scraper.SelectStrategy(cfg, logger)
	scr := scraper.New(strategy, repo, logger)
	defer func() {
		if err := scr.Close(); err != nil {
			logger.Error("Failed to close scraper", "error", err.Error())
		}
	}()

	notifier := notify.NewEmailNotifier(cfg.SMTP, logger)
	orchestrator := app.NewOrchestrator(scr, repo, notifier, logger)

	scheduler := app.NewScheduler(orchestrator,
		cfg.Scheduler.CheckIntervalMin,
		cfg.Scheduler.CleanupIntervalHrs,
		logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err.Error())
		os.Exit(1)
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr: cfg.Server.ListenAddr,
		Handler: api.NewServer(repo, notifier, func() {
			orchestrator.TriggerCheck(ctx)
		}, logger).Router(),
	}

	go func() {
		logger.Info("API server listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server failed", "error", err.Error())
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err.Error())
	}

	logger.Info("Auction monitor stopped")
}

func openRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "mssql":
		return mssql.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
	default:
		return sqlite.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
	}
}
