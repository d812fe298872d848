package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamesy/storefront/internal/assistant"
	"github.com/gamesy/storefront/internal/config"
	"github.com/gamesy/storefront/internal/httpapi"
	"github.com/gamesy/storefront/internal/hub"
	"github.com/gamesy/storefront/internal/logging"
	"github.com/gamesy/storefront/internal/order"
	"github.com/gamesy/storefront/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	model, closeModel, err := openModel(ctx, cfg.Assistant, logger)
	if err != nil {
		return err
	}
	defer closeModel()

	h := hub.NewHub(context.Background(), hub.Options{
		Store:       store,
		Dispatcher:  order.NewDispatcher(cfg.Order.BaseURL, cfg.Order.Destination, logger),
		LoginDelay:  cfg.LoginDelay,
		IdleTimeout: cfg.IdleTimeout,
		Logger:      logger,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, model, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		select {
		case <-done:
		case <-shutdownCtx.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Storage) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := storage.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return storage.NewGorm(ctx, db)
	case config.DriverSupabase:
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable)
	default:
		return storage.NewMemory(), nil
	}
}

func openModel(ctx context.Context, cfg config.Assistant, logger *zap.Logger) (assistant.Model, func(), error) {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, assistant replies will fall back")
		return assistant.Offline{}, func() {}, nil
	}
	m, err := assistant.NewGeminiModel(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}
