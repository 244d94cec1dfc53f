package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/georgemunganga/catalog-backend/internal/config"
	"github.com/georgemunganga/catalog-backend/internal/modules/catalog"
	"github.com/georgemunganga/catalog-backend/internal/modules/events"
	"github.com/georgemunganga/catalog-backend/internal/obs"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		obs.Logger.Error("invalid_config", "error", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		obs.Logger.Error("service_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	repo, err := openRepository(connectCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(ctx); err != nil {
			obs.Logger.Warn("store_close_error", "error", err)
		}
	}()
	obs.Logger.Info("store_connected", "driver", cfg.StoreDriver)

	var pub catalog.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		pub = amqpPub
		obs.Logger.Info("events_enabled", "exchange", cfg.AMQPExchange)
	}

	catalogService := catalog.NewService(repo, pub)
	if cfg.Seed {
		// Seeding is best effort.
		if _, err := catalogService.Seed(connectCtx); err != nil {
			obs.Logger.Warn("catalog_seed_failed", "error", err)
		}
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(obs.RequestLogger)
	router.Use(middleware.Recoverer)
	catalog.NewHandler(catalogService).RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		obs.Logger.Info("shutdown_signal", "signal", s.String())
	case err := <-errc:
		if err != nil {
			return err
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
	return nil
}

func openRepository(ctx context.Context, cfg config.Config) (catalog.Repository, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		if err := catalog.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return catalog.NewPostgresRepository(db), nil
	case config.DriverMemory:
		return catalog.NewMemoryRepository(), nil
	default:
		return catalog.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	}
}
