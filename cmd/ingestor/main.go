package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"fintech_reviews/internal/adapters/feed"
	"fintech_reviews/internal/adapters/observability"
	redisad "fintech_reviews/internal/adapters/redis"
	"fintech_reviews/internal/adapters/sentiment"
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

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.MustRegisterDefault()
	observability.Serve(cfg.MetricsAddr)

	sources, err := shared.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load sources")
	}
	catalog, err := app.LoadThemeCatalog(cfg.ThemeCatalog)
	if err != nil {
		log.Fatal().Err(err).Msg("load theme catalog")
	}

	log.Info().
		Str("feed", cfg.FeedBase).
		Str("store", cfg.StoreDriver).
		Int("sources", len(sources)).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Msg("ingestor starting")

	dialect, err := sqlstore.ParseDialect(cfg.StoreDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("store driver")
	}
	repo, err := sqlstore.Open(ctx, dialect, cfg.StoreDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store unavailable")
	}
	defer repo.Close()
	log.Info().Msg("db ping ok")

	client, err := feed.New(cfg.FeedBase, cfg.FeedKey, cfg.FeedRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize review feed client")
	}

	// the cache only serves the API; ingestion proceeds without it
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; cached reports will expire on their own")
	} else {
		cache = rc
		defer rc.Close()
	}

	enricher, err := app.NewEnricher(sentiment.NewLexiconScorer(nil),
		app.WithPoolSize(cfg.EnrichWorkers),
		app.WithTopKeywords(cfg.KeywordsTopN),
		app.WithCatalog(catalog),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("enricher")
	}
	defer enricher.Release()

	ing := app.NewIngestionService(repo, client, cache,
		app.NewNormalizer(app.WithMinTextLength(cfg.MinTextLength)),
		enricher,
		app.NewLoader(repo, app.WithBatchSize(cfg.BatchSize), app.WithLoadWorkers(cfg.LoadWorkers)),
	)
	if err := ing.Prepare(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, src := range sources {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("ingestion interrupted")
			break
		}

		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			defer sem.Release(1)

			rep, err := ing.IngestSource(ctx, src, cfg.ReviewCount)
			if err != nil {
				failed.Add(1)
				log.Error().Str("source", src.Name).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Str("source", src.Name).Str("run_id", rep.RunID).
				Int("loaded", rep.Loaded).Int("failed_to_load", rep.FailedToLoad).Msg("ingest ok")
		}(src)
	}

	wg.Wait()
	if n := failed.Load(); n > 0 {
		log.Error().Int32("failed_sources", n).Msg("ingestion completed with failures")
		os.Exit(1)
	}
	log.Info().Msg("ingestion completed")
}
