// Command feedsync runs the feed state sync service: it hydrates the entity
// cache from the durable store, refreshes posts from the remote catalog and
// serves the cache over HTTP and websocket.
//
// @title       feedsync API
// @version     1.0
// @description Local state sync layer for a content feed: cached posts, comments, favourites and session.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/catalog"
	"github.com/tbourn/go-feed-sync/internal/config"
	httpapi "github.com/tbourn/go-feed-sync/internal/http"
	"github.com/tbourn/go-feed-sync/internal/observability"
	"github.com/tbourn/go-feed-sync/internal/repo"
	"github.com/tbourn/go-feed-sync/internal/services"
	"github.com/tbourn/go-feed-sync/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout     = 15 * time.Second
	replaySweepInterval = time.Hour
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
	})

	if err := run(logger.WithContext(context.Background()), cfg); err != nil {
		logger.Fatal().Err(err).Msg("feedsync stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, db, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	c := cache.New()
	cat := catalog.New(catalog.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		PostLimit: cfg.Catalog.PostLimit,
		Timeout:   cfg.Catalog.Timeout,
		RPS:       cfg.Catalog.RPS,
		Burst:     cfg.Catalog.Burst,
	})
	syncSvc := services.NewSyncService(c, store, cat)
	syncSvc.RequireHydration = cfg.Sync.RequireHydration
	mutSvc := services.NewMutationService(syncSvc)
	mutSvc.RequireHydration = cfg.Sync.RequireHydration
	sessSvc := services.NewSessionService(store)

	// Hydrate before serving so the first reads already see persisted state.
	hctx, cancel := context.WithTimeout(ctx, cfg.Sync.HydrateTimeout)
	rep := syncSvc.Hydrate(hctx)
	cancel()
	log.Info().
		Str("favourites", string(rep.Favourites)).
		Str("comments", string(rep.Comments)).
		Msg("cache hydrated")

	if cfg.Sync.RefreshOnStart {
		go func() {
			if err := syncSvc.RefreshPosts(ctx); err != nil {
				log.Warn().Err(err).Msg("initial feed refresh failed")
				return
			}
			log.Info().Int("posts", len(c.Posts())).Msg("initial feed refresh done")
		}()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()

	deps := httpapi.Deps{
		Cache:     c,
		Sync:      syncSvc,
		Mutations: mutSvc,
		Sessions:  sessSvc,
	}
	if db != nil {
		replays := httpapi.NewDBReplayStore(db, cfg.IdempotencyTTL)
		go replays.Sweep(ctx, replaySweepInterval)
		deps.Replays = replays
	}
	streamsDone := make(chan struct{})
	deps.StreamsDone = streamsDone
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(func() { close(streamsDone) })

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	return srv.Shutdown(sctx)
}

// openStore builds the durable store selected by cfg.Driver. db is nil for
// the memory driver. The returned close function releases the connection pool.
func openStore(cfg config.StoreConfig) (services.Store, *gorm.DB, func(), error) {
	switch cfg.Driver {
	case config.StoreMemory:
		log.Warn().Msg("memory store selected; state is lost on exit")
		return repo.NewMemoryStore(), nil, func() {}, nil
	case config.StorePostgres, config.StoreSQLite:
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	open := func() (*gorm.DB, error) { return repo.OpenSQLite(cfg.DBPath) }
	if cfg.Driver == config.StorePostgres {
		open = func() (*gorm.DB, error) { return repo.OpenPostgres(cfg.DatabaseURL) }
	}
	db, err := open()
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("store close")
			}
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return repo.NewKVStore(db), db, closeFn, nil
}
