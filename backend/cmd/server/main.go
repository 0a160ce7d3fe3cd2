package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linklander/backend/internal/api"
	"linklander/backend/internal/graph"
	"linklander/backend/internal/persistence"
	"linklander/backend/internal/search"
	"linklander/backend/internal/titles"
	"linklander/backend/pkg/config"
	"linklander/backend/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting LinkLander API server...",
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.StoreBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
	log.Info("Server exited")
}

// run wires the store, gateway, search provider and router, then serves until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	router, cleanup, err := buildRouter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

// buildRouter opens the configured store and assembles the HTTP handler over it
func buildRouter(ctx context.Context, cfg *config.Config, log *zap.Logger) (http.Handler, func(), error) {
	store, err := graph.Open(ctx, graph.OpenConfig{
		Backend: cfg.StoreBackend,
		Neo4j: graph.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		},
		SQLitePath: cfg.SQLitePath,
	}, log.Named("graph"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}

	gateway := persistence.New(store, log, persistence.Options{EnforceUniqueLinkNames: cfg.UniqueLinkNames})
	if err := gateway.EnsureSchema(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	provider, err := search.New(cfg.SearchProvider, gateway, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	opts := api.Options{
		Gateway:    gateway,
		Search:     provider,
		Logger:     log,
		Production: cfg.IsProduction(),
	}
	if cfg.FetchTitles {
		opts.Titles = titles.NewResolver(cfg.TitleFetchTimeout, log)
	}

	return api.NewRouter(opts), cleanup, nil
}
