package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "fintech_reviews/internal/adapters/http_server"
	"fintech_reviews/internal/adapters/observability"
	redisad "fintech_reviews/internal/adapters/redis"
	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
	"fintech_reviews/internal/shared"
	"fintech_reviews/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	// db
	dialect, err := sqlstore.ParseDialect(cfg.StoreDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("store driver")
	}
	repo, err := sqlstore.Open(ctx, dialect, cfg.StoreDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store unavailable")
	}
	defer repo.Close()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}
	log.Info().Str("driver", string(dialect)).Msg("database connection ok")

	catalog, err := app.LoadThemeCatalog(cfg.ThemeCatalog)
	if err != nil {
		log.Fatal().Err(err).Msg("load theme catalog")
	}

	// deps
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; serving uncached")
	} else {
		cache = rc
		defer rc.Close()
	}
	q := app.NewQueryService(repo, app.NewAggregator(catalog, 0), cache, cfg.CacheTTL)

	// http
	srv := server.New(0)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
