package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fintech_reviews/internal/adapters/observability"
	"fintech_reviews/internal/domain"
)

// RunReport summarizes one pipeline run for one source.
type RunReport struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`

	Ingested              int `json:"ingested"`
	Duplicates            int `json:"duplicates"`
	Rejected              int `json:"rejected"`
	EnrichedWithSentiment int `json:"enriched_with_sentiment"`
	Loaded                int `json:"loaded"`
	FailedToLoad          int `json:"failed_to_load"`

	Normalize NormalizeReport `json:"normalize"`
	Enrich    EnrichReport    `json:"enrich"`
	Load      LoadReport      `json:"load"`

	Duration time.Duration `json:"duration"`
}

// IngestionService runs the normalize → enrich → load pipeline for a source.
type IngestionService struct {
	schema domain.SchemaManager
	feed   domain.ReviewFeed
	cache  domain.Cache

	normalizer *Normalizer
	enricher   *Enricher
	loader     *Loader
}

func NewIngestionService(
	schema domain.SchemaManager,
	feed domain.ReviewFeed,
	cache domain.Cache,
	n *Normalizer,
	e *Enricher,
	l *Loader,
) *IngestionService {
	return &IngestionService{schema: schema, feed: feed, cache: cache, normalizer: n, enricher: e, loader: l}
}

// Prepare ensures the schema. Its failure is fatal for every run.
func (s *IngestionService) Prepare(ctx context.Context) error {
	if s.schema == nil {
		return nil
	}
	if err := s.schema.EnsureSchema(ctx); err != nil {
		if errors.Is(err, domain.ErrSchema) || errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}
	return nil
}

// IngestSource fetches up to count reviews for src from the feed and runs them through the pipeline.
func (s *IngestionService) IngestSource(ctx context.Context, src domain.Source, count int) (RunReport, error) {
	if s.feed == nil {
		return RunReport{Source: src.Name}, errors.New("no review feed configured")
	}
	raw, err := s.feed.FetchReviews(ctx, src, count)
	if err != nil {
		return RunReport{Source: src.Name}, fmt.Errorf("fetch reviews for %s: %w", src.Name, err)
	}
	return s.Run(ctx, src, raw)
}

// RunMixed splits raw by source and runs each group in turn. It stops at the first fatal error.
func (s *IngestionService) RunMixed(ctx context.Context, raw []domain.RawRecord, known []domain.Source, fallback domain.Source) ([]RunReport, error) {
	var out []RunReport
	for _, g := range GroupBySource(raw, known, fallback) {
		rep, err := s.Run(ctx, g.Source, g.Records)
		out = append(out, rep)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// Run executes one pipeline pass over raw records for src.
func (s *IngestionService) Run(ctx context.Context, src domain.Source, raw []domain.RawRecord) (RunReport, error) {
	start := time.Now()
	rep := RunReport{RunID: uuid.NewString(), Source: src.Name}
	lg := log.With().Str("run_id", rep.RunID).Str("source", src.Name).Logger()

	t := time.Now()
	reviews, nrep := s.normalizer.Normalize(src, raw)
	observability.ObserveStage("normalize", time.Since(t))
	rep.Normalize = nrep
	rep.Ingested, rep.Duplicates, rep.Rejected = nrep.In, nrep.Duplicates, nrep.Rejected
	observability.ObserveRecords(src.Name, "normalize", "retained", nrep.Retained)
	observability.ObserveRecords(src.Name, "normalize", "duplicate", nrep.Duplicates)
	observability.ObserveRecords(src.Name, "normalize", "rejected", nrep.Rejected)

	lg.Info().Int("in", nrep.In).Int("retained", nrep.Retained).Int("duplicates", nrep.Duplicates).
		Int("rejected", nrep.Rejected).Interface("reasons", nrep.Reasons).Msg("normalized")
	if ratio := nrep.MissingRatio(); ratio > MissingDataTarget {
		lg.Warn().Float64("missing_ratio", ratio).Float64("target", MissingDataTarget).
			Msg("missing rating/date share above target")
	}

	t = time.Now()
	reviews, erep := s.enricher.Enrich(ctx, reviews)
	observability.ObserveStage("enrich", time.Since(t))
	rep.Enrich = erep
	rep.EnrichedWithSentiment = erep.WithSentiment
	observability.ObserveRecords(src.Name, "enrich", "with_sentiment", erep.WithSentiment)
	observability.ObserveRecords(src.Name, "enrich", "without_sentiment", erep.Total-erep.WithSentiment)

	lg.Info().Int("total", erep.Total).Int("with_sentiment", erep.WithSentiment).
		Int("score_errors", erep.ScoreErrors).Msg("enriched")
	if erep.BelowTarget() {
		lg.Warn().Float64("success_ratio", erep.SuccessRatio).Float64("target", SentimentTarget).
			Msg("sentiment coverage below target")
	}

	t = time.Now()
	lrep, err := s.loader.Load(ctx, src, reviews)
	observability.ObserveStage("load", time.Since(t))
	rep.Load = lrep
	rep.Loaded, rep.FailedToLoad = lrep.RowsWritten, len(lrep.RowsFailed)
	rep.Duration = time.Since(start)
	observability.ObserveRecords(src.Name, "load", "written", lrep.RowsWritten)
	observability.ObserveRecords(src.Name, "load", "failed", len(lrep.RowsFailed))

	// a completed load may also have created the source row itself
	if err == nil || lrep.RowsWritten > 0 {
		invalidateSource(ctx, s.cache, src.Name)
	}
	if err != nil {
		lg.Error().Err(err).Msg("load aborted")
		return rep, err
	}

	for _, f := range lrep.RowsFailed {
		lg.Warn().Str("review_id", f.ID).Str("reason", f.Reason).Msg("row not loaded")
	}
	for _, w := range lrep.Warnings {
		lg.Warn().Msg(w)
	}
	lg.Info().
		Int("ingested", rep.Ingested).
		Int("duplicates", rep.Duplicates).
		Int("rejected", rep.Rejected).
		Int("enriched_with_sentiment", rep.EnrichedWithSentiment).
		Int("loaded", rep.Loaded).
		Int("failed_to_load", rep.FailedToLoad).
		Int("batches", lrep.BatchesAttempted).
		Int("batches_committed", lrep.BatchesCommitted).
		Dur("took", rep.Duration).
		Msg("run complete")
	return rep, nil
}
