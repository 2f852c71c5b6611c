package app

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"fintech_reviews/internal/domain"
)

const SentimentTarget = 0.9

type EnrichReport struct {
	Total         int     `json:"total"`
	WithSentiment int     `json:"with_sentiment"`
	SuccessRatio  float64 `json:"success_ratio"`
	ScoreErrors   int     `json:"score_errors"`
}

// BelowTarget reports whether sentiment coverage missed SentimentTarget. Empty batches never miss.
func (r EnrichReport) BelowTarget() bool {
	return r.Total > 0 && r.SuccessRatio < SentimentTarget
}

// Enricher attaches sentiment, themes and keywords to normalized reviews.
// Per-review work runs on an ants pool; Release must be called when done.
type Enricher struct {
	scorer  domain.SentimentScorer
	catalog ThemeCatalog
	topN    int

	minScore, maxScore float64

	pool *ants.Pool
}

type EnricherOption func(*enricherConfig)

type enricherConfig struct {
	poolSize           int
	topN               int
	catalog            ThemeCatalog
	minScore, maxScore float64
}

func WithPoolSize(n int) EnricherOption {
	return func(c *enricherConfig) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

func WithTopKeywords(n int) EnricherOption {
	return func(c *enricherConfig) {
		if n > 0 {
			c.topN = n
		}
	}
}

func WithCatalog(cat ThemeCatalog) EnricherOption {
	return func(c *enricherConfig) {
		if len(cat) > 0 {
			c.catalog = cat
		}
	}
}

// WithScoreRange bounds accepted scorer output; scores outside [lo,hi] are discarded.
func WithScoreRange(lo, hi float64) EnricherOption {
	return func(c *enricherConfig) {
		if lo < hi {
			c.minScore, c.maxScore = lo, hi
		}
	}
}

func NewEnricher(scorer domain.SentimentScorer, opts ...EnricherOption) (*Enricher, error) {
	cfg := enricherConfig{
		poolSize: runtime.NumCPU(),
		topN:     DefaultTopKeywords,
		catalog:  DefaultThemeCatalog(),
		minScore: -1,
		maxScore: 1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	pool, err := ants.NewPool(cfg.poolSize, ants.WithPanicHandler(func(p any) {
		log.Error().Interface("panic", p).Msg("enrich worker panic")
	}))
	if err != nil {
		return nil, fmt.Errorf("create enrich pool: %w", err)
	}
	return &Enricher{
		scorer:   scorer,
		catalog:  cfg.catalog,
		topN:     cfg.topN,
		minScore: cfg.minScore,
		maxScore: cfg.maxScore,
		pool:     pool,
	}, nil
}

// Release stops the worker pool. The enricher must not be used afterwards.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

func (e *Enricher) Catalog() ThemeCatalog { return e.catalog }

// Enrich returns annotated copies of reviews in input order. Identity, text, rating,
// date and source are never touched. Keyword selection starts only after corpus
// statistics over the whole batch are complete.
func (e *Enricher) Enrich(ctx context.Context, reviews []domain.Review) ([]domain.Review, EnrichReport) {
	out := make([]domain.Review, len(reviews))
	copy(out, reviews)
	rep := EnrichReport{Total: len(out)}
	if len(out) == 0 {
		return out, rep
	}

	tokens := make([][]string, len(out))
	scoreErrs := make([]bool, len(out))

	// phase 1: sentiment, themes, tokens
	e.fanOut(len(out), func(i int) {
		rv := &out[i]
		rv.SentimentLabel, rv.SentimentScore, scoreErrs[i] = e.score(ctx, rv.Text)
		rv.Themes = MatchThemes(e.catalog, rv.Text)
		tokens[i] = Tokenize(rv.Text)
	})

	// barrier: stats need every document
	stats := BuildCorpusStats(tokens)

	// phase 2: keyword selection
	e.fanOut(len(out), func(i int) {
		out[i].Keywords = TopKeywords(stats, tokens[i], e.topN)
	})

	for i := range out {
		if out[i].SentimentLabel != domain.SentimentNone {
			rep.WithSentiment++
		}
		if scoreErrs[i] {
			rep.ScoreErrors++
		}
	}
	rep.SuccessRatio = float64(rep.WithSentiment) / float64(rep.Total)
	return out, rep
}

// fanOut runs task(i) for i in [0,n) on the pool and waits for all of them.
// If the pool rejects a submission the task runs inline.
func (e *Enricher) fanOut(n int, task func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i // per-iteration copy; go directive is below 1.22
		run := func() {
			defer wg.Done()
			task(i)
		}
		if err := e.pool.Submit(run); err != nil {
			run()
		}
	}
	wg.Wait()
}

// score calls the scorer and validates its answer. failed is true when the scorer errored or panicked.
func (e *Enricher) score(ctx context.Context, text string) (label domain.SentimentLabel, score *float64, failed bool) {
	if e.scorer == nil || ctx.Err() != nil {
		return domain.SentimentNone, nil, ctx.Err() != nil
	}
	defer func() {
		if p := recover(); p != nil {
			log.Warn().Interface("panic", p).Msg("sentiment scorer panicked")
			label, score, failed = domain.SentimentNone, nil, true
		}
	}()

	s, err := e.scorer.Score(ctx, text)
	if err != nil {
		return domain.SentimentNone, nil, true
	}
	if !s.Label.Valid() {
		return domain.SentimentNone, nil, false
	}
	if s.Score != nil {
		v := *s.Score
		if math.IsNaN(v) || math.IsInf(v, 0) || v < e.minScore || v > e.maxScore {
			return domain.SentimentNone, nil, false
		}
		score = &v
	}
	return s.Label, score, false
}
