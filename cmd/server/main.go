package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/halftunes/api"
	"github.com/yourusername/halftunes/internal/app"
	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/internal/infrastructure"
	"github.com/yourusername/halftunes/internal/monitoring"
	"github.com/yourusername/halftunes/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.halftunes, /etc/halftunes)")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "halftunes-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
		Compress:   config.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Three categories: transfer, search, error
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:      config.Logging.Level,
		LogsDir:    config.Download.LogsDir,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
		Compress:   config.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize multi-logger: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting halftunes server",
		zap.String("version", api.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("library_dir", config.Download.LibraryDir))

	if err := createDirectories(config); err != nil {
		return err
	}

	store := infrastructure.NewLocalStore(config.Download.LibraryDir)
	layer := infrastructure.NewHTTPTransferLayer(
		infrastructure.NewDownloadClient(config.Download.RequestTimeout),
		config.Download.IncomingDir,
		config.Download.ProgressInterval,
		multiLog.Tee(log, logger.CategoryTransfer),
	)

	hub := infrastructure.NewEventHub(log)
	manager := app.NewSessionManager(layer, store, log,
		monitoring.NewTransferObserver(),
		hub,
	)
	if config.Notification.Enabled {
		manager.AddObserver(infrastructure.NewNotificationService(&config.Notification, log))
	}

	deps := api.Dependencies{
		Manager:     manager,
		Active:      manager,
		Store:       store,
		Events:      hub,
		Logger:      log,
		MultiLogger: multiLog,
		LogsDir:     config.Download.LogsDir,
	}
	if config.Metrics.Enabled {
		deps.MetricsPath = config.Metrics.Path
	}

	var recorder *app.HistoryRecorder
	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize history: %w", err)
		}
		defer repo.Close()

		if config.History.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -config.History.RetentionDays)
			if n, err := repo.DeleteOlderThan(cutoff); err != nil {
				log.Warn("Failed to prune history", zap.Error(err))
			} else if n > 0 {
				log.Info("Pruned history", zap.Int64("entries", n), zap.Time("cutoff", cutoff))
			}
		}

		recorder = app.NewHistoryRecorder(repo, multiLog, config.History.BufferSize)
		manager.AddObserver(recorder)
		deps.History = repo
		deps.Recorder = recorder
	}

	searchClient := infrastructure.NewITunesSearchClient(config.Search, multiLog.Tee(log, logger.CategorySearch))
	deps.Searcher = app.NewSearchService(searchClient, manager, store, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stopped after manager.Shutdown so its cancellations are recorded.
	if recorder != nil {
		if err := recorder.Start(context.Background()); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Active transfers are dropped; resume tokens do not survive a restart.
		manager.Shutdown()
		layer.Shutdown()

		err := server.Shutdown(shutdownCtx)
		if recorder != nil {
			if stopErr := recorder.Stop(); stopErr != nil {
				log.Warn("Failed to stop history recorder", zap.Error(stopErr))
			}
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server exited with error", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.LibraryDir,
		config.Download.IncomingDir,
		config.Download.LogsDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
