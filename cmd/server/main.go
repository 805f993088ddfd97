package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricecheck/backend/config"
	httpDelivery "github.com/pricecheck/backend/internal/delivery/http"
	"github.com/pricecheck/backend/internal/domain"
	"github.com/pricecheck/backend/internal/infrastructure/cache"
	"github.com/pricecheck/backend/internal/infrastructure/catalog"
	"github.com/pricecheck/backend/internal/infrastructure/storage/postgres"
	"github.com/pricecheck/backend/internal/infrastructure/storage/sqlite"
	"github.com/pricecheck/backend/internal/logging"
	"github.com/pricecheck/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.Logging.Level)
	slog.SetDefault(logger)

	logger.Info("starting PriceCheck backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"profile", cfg.Processing.Profile,
		"chunk_size", cfg.Processing.ChunkSize,
		"workers", cfg.Processing.MaxWorkers,
		"storage", cfg.Storage.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	regionCache := cache.NewRegionCache()
	defer regionCache.Close()

	catalogClient := catalog.NewClient(catalog.ClientConfig{
		BaseURL:            cfg.Catalog.BaseURL,
		CartRouteID:        cfg.Catalog.CartRouteID,
		SearchRouteID:      cfg.Catalog.SearchRouteID,
		UserAgent:          cfg.Catalog.UserAgent,
		RequestTimeout:     cfg.Catalog.RequestTimeout,
		RegionTimeout:      cfg.Catalog.RegionTimeout,
		RequestsPerMinute:  cfg.Catalog.RequestsPerMinute,
		MinRequestInterval: cfg.Catalog.MinRequestInterval,
		MaxResponseBytes:   cfg.Catalog.MaxResponseBytes,
		MaxDepth:           cfg.Catalog.MaxDepth,
	}, logger)

	// Initialize usecase layer
	janitor := usecase.NewJanitor(repo, cfg.Storage.SessionRetention, cfg.Storage.SweepInterval, logger)
	searchService := usecase.NewSearchService(catalogClient, regionCache, repo, janitor,
		usecase.SearchServiceConfig{
			ChunkSize:      cfg.Processing.ChunkSize,
			RegionCacheTTL: cfg.Cache.RegionTTL,
		}, logger)
	chunkProcessor := usecase.NewChunkProcessor(catalogClient, repo,
		usecase.ChunkProcessorConfig{MaxWorkers: cfg.Processing.MaxWorkers}, logger)
	sessionService := usecase.NewSessionService(repo)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService, chunkProcessor, sessionService,
		httpDelivery.HandlerConfig{
			Processing:       cfg.Processing,
			ProgressInterval: cfg.Server.ProgressInterval,
			AllowedOrigins:   cfg.Server.AllowedOrigins,
		}, logger)

	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go janitor.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down", "cached_regions", regionCache.Size())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if _, err := janitor.Sweep(shutdownCtx); err != nil {
		logger.Warn("final sweep failed", "error", err)
	}
	return nil
}

// openRepository selects the session store named by storage.driver
func openRepository(ctx context.Context, cfg *config.Config) (domain.SessionRepository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		repo, err := postgres.Open(ctx, cfg.Storage.PostgresDSN, cfg.Processing.MaxWorkers*2+2)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return repo, nil
	}
}
