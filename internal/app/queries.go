package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fintech_reviews/internal/domain"
)

const (
	cacheKeyTotals = "stats:totals"
	cacheKeyReport = "report:all"
)

func sourceReportKey(name string) string {
	return fmt.Sprintf("report:source:%s", strings.ToLower(name))
}

// QueryService serves read-only statistics, caching computed reports.
type QueryService struct {
	repo     domain.ReviewRepository
	agg      *Aggregator
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, agg *Aggregator, c domain.Cache, ttl time.Duration) *QueryService {
	if agg == nil {
		agg = NewAggregator(nil, 0)
	}
	return &QueryService{repo: r, agg: agg, cache: c, cacheTTL: ttl}
}

// Totals returns the review_statistics view rows.
func (s *QueryService) Totals(ctx context.Context) ([]domain.SourceTotals, error) {
	var out []domain.SourceTotals
	if s.cacheGet(ctx, cacheKeyTotals, &out) {
		return out, nil
	}
	out, err := s.repo.SourceTotals(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyTotals, out)
	return out, nil
}

// SourceReport summarizes one source. Unknown sources yield domain.ErrNotFound.
func (s *QueryService) SourceReport(ctx context.Context, name string) (domain.SourceReport, error) {
	key := sourceReportKey(name)
	var rep domain.SourceReport
	if s.cacheGet(ctx, key, &rep) {
		return rep, nil
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		return domain.SourceReport{}, err
	}
	canonical := ""
	for _, t := range totals {
		if strings.EqualFold(t.Source, name) {
			canonical = t.Source
			break
		}
	}
	if canonical == "" {
		return domain.SourceReport{}, fmt.Errorf("source %q: %w", name, domain.ErrNotFound)
	}

	rs, err := s.repo.ListReviews(ctx, canonical)
	if err != nil {
		return domain.SourceReport{}, err
	}
	rep = s.agg.Summarize(canonical, rs)
	s.cacheSet(ctx, key, rep)
	return rep, nil
}

// Overview is the cross-source report.
func (s *QueryService) Overview(ctx context.Context) (domain.Report, error) {
	var rep domain.Report
	if s.cacheGet(ctx, cacheKeyReport, &rep) {
		return rep, nil
	}
	rs, err := s.repo.ListReviews(ctx, "")
	if err != nil {
		return domain.Report{}, err
	}
	rep = s.agg.Report(rs)
	s.cacheSet(ctx, cacheKeyReport, rep)
	return rep, nil
}

func (s *QueryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, _ := s.cache.Get(ctx, key, dst)
	return ok
}

func (s *QueryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	// optional size guard
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}

// invalidateSource drops every cached view a load of source can change.
func invalidateSource(ctx context.Context, c domain.Cache, source string) {
	if c == nil {
		return
	}
	_ = c.Del(ctx, sourceReportKey(source))
	_ = c.Del(ctx, cacheKeyReport)
	_ = c.Del(ctx, cacheKeyTotals)
}
