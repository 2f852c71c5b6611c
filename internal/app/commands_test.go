package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintech_reviews/internal/adapters/feed"
	"fintech_reviews/internal/adapters/sentiment"
	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
	"fintech_reviews/internal/storage/sqlstore"
)

type stubFeed struct {
	records []domain.RawRecord
	err     error
	asked   int
}

func (f *stubFeed) FetchReviews(ctx context.Context, src domain.Source, count int) ([]domain.RawRecord, error) {
	f.asked = count
	return f.records, f.err
}

type failingSchema struct{ err error }

func (s failingSchema) EnsureSchema(ctx context.Context) error { return s.err }

func newPipeline(t *testing.T, repo *sqlstore.Repo, feed domain.ReviewFeed, cache domain.Cache) *app.IngestionService {
	t.Helper()
	e, err := app.NewEnricher(sentiment.NewLexiconScorer(nil), app.WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return app.NewIngestionService(repo, feed, cache, app.NewNormalizer(), e, app.NewLoader(repo))
}

func totalsFor(t *testing.T, repo *sqlstore.Repo, source string) domain.SourceTotals {
	t.Helper()
	totals, err := repo.SourceTotals(context.Background())
	require.NoError(t, err)
	for _, st := range totals {
		if st.Source == source {
			return st
		}
	}
	t.Fatalf("no totals for %s", source)
	return domain.SourceTotals{}
}

func TestRun_PositiveReviewEndToEnd(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	svc := newPipeline(t, repo, nil, nil)
	require.NoError(t, svc.Prepare(ctx))

	raw := []domain.RawRecord{
		{"id": "r1", "text": "fast and reliable", "rating": 5.0, "date": "2024-05-01", "source": "CBE"},
		{"id": "r1", "text": "fast and reliable", "rating": 5.0, "date": "2024-05-01", "source": "CBE"},
	}
	rep, err := svc.Run(ctx, cbe, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Ingested)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 1, rep.EnrichedWithSentiment)
	assert.Equal(t, 1, rep.Loaded)
	assert.Zero(t, rep.FailedToLoad)

	stored, err := repo.ListReviews(ctx, "CBE")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "r1", stored[0].ID)
	assert.Equal(t, domain.SentimentPositive, stored[0].SentimentLabel)
	assert.Contains(t, stored[0].Themes, "Reliable/Stable")
	assert.Equal(t, "2024-05-01", *stored[0].Date)

	st := totalsFor(t, repo, "CBE")
	assert.Equal(t, 1, st.TotalReviews)
	require.NotNil(t, st.AverageRating)
	assert.InDelta(t, 5.0, *st.AverageRating, 1e-9)
	assert.Equal(t, 1, st.Positive)

	summary := app.NewAggregator(nil, 0).Summarize("CBE", stored)
	require.NotNil(t, summary.MeanRating)
	assert.InDelta(t, 5.0, *summary.MeanRating, 1e-9)
	assert.Equal(t, 1, summary.Sentiment.Positive)

	// rerun of the same input changes nothing
	rep, err = svc.Run(ctx, cbe, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Loaded)
	assert.Equal(t, 1, totalsFor(t, repo, "CBE").TotalReviews)
}

func TestRun_EmptyTextIsRejected(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	svc := newPipeline(t, repo, nil, nil)

	rep, err := svc.Run(ctx, boa, []domain.RawRecord{{"text": "", "rating": 3.0, "source": "BOA"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Rejected)
	assert.Zero(t, rep.Loaded)

	n, err := repo.CountReviews(ctx, "BOA")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, totalsFor(t, repo, "BOA").TotalReviews)

	stored, err := repo.ListReviews(ctx, "BOA")
	require.NoError(t, err)
	assert.Zero(t, app.NewAggregator(nil, 0).Summarize("BOA", stored).ReviewCount)
}

func TestRun_InvalidatesCachedReports(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	cache := &fakeCache{}
	require.NoError(t, cache.Set(ctx, "report:all", domain.Report{}, 60))
	require.NoError(t, cache.Set(ctx, "report:source:cbe", domain.SourceReport{}, 60))

	svc := newPipeline(t, repo, nil, cache)
	_, err := svc.Run(ctx, cbe, []domain.RawRecord{{"content": "Secure and easy"}})
	require.NoError(t, err)
	assert.Empty(t, cache.store)
	assert.Contains(t, cache.deleted, "stats:totals")
}

func TestIngestSource_UsesFeed(t *testing.T) {
	repo := openStore(t)
	feed := &stubFeed{records: []domain.RawRecord{
		{"reviewId": "gp-1", "content": "Transfer failed twice", "score": 1.0, "at": "2024-04-01T10:00:00Z"},
		{"reviewId": "gp-2", "content": "Great support", "score": 5.0, "at": "2024-04-02T10:00:00Z"},
	}}
	svc := newPipeline(t, repo, feed, nil)

	rep, err := svc.IngestSource(context.Background(), cbe, 400)
	require.NoError(t, err)
	assert.Equal(t, 400, feed.asked)
	assert.Equal(t, 2, rep.Loaded)

	n, err := repo.CountExisting(context.Background(), []string{"gp-1", "gp-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestSource_FeedErrors(t *testing.T) {
	repo := openStore(t)
	boom := errors.New("feed down")

	_, err := newPipeline(t, repo, &stubFeed{err: boom}, nil).IngestSource(context.Background(), cbe, 10)
	require.ErrorIs(t, err, boom)

	_, err = newPipeline(t, repo, nil, nil).IngestSource(context.Background(), cbe, 10)
	require.Error(t, err)
}

func TestRunMixed_SplitsBySource(t *testing.T) {
	repo := openStore(t)
	svc := newPipeline(t, repo, nil, nil)
	raw := []domain.RawRecord{
		{"review": "Easy to use", "bank": "CBE"},
		{"review": "Login keeps failing", "bank": "Bank of Abyssinia"},
		{"review": "Works well"},
	}

	reps, err := svc.RunMixed(context.Background(), raw, []domain.Source{cbe, boa}, cbe)
	require.NoError(t, err)
	require.Len(t, reps, 2)
	assert.Equal(t, "CBE", reps[0].Source)
	assert.Equal(t, 2, reps[0].Loaded)
	assert.Equal(t, "BOA", reps[1].Source)
	assert.Equal(t, 1, reps[1].Loaded)
}

func TestPrepare_WrapsSchemaErrors(t *testing.T) {
	svc := app.NewIngestionService(failingSchema{err: errors.New("syntax error")}, nil, nil, nil, nil, nil)
	err := svc.Prepare(context.Background())
	require.ErrorIs(t, err, domain.ErrSchema)
}

func TestRunMixed_ScraperCSVBlankBankIsRejected(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	cache := &fakeCache{}
	svc := newPipeline(t, repo, nil, cache)

	raw, err := feed.ReadCSV(strings.NewReader(`review_id,review,rating,date,bank,app_name,source
g1,fast and reliable,5,2024-05-01,CBE,CBE Mobile Banking,Google Play Store
g2,slow and keeps crashing,1,2024-05-02,,CBE Mobile Banking,Google Play Store
`))
	require.NoError(t, err)

	reps, err := svc.RunMixed(ctx, raw, []domain.Source{cbe, boa}, cbe)
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, "CBE", reps[0].Source)
	assert.Equal(t, 1, reps[0].Rejected)
	assert.Equal(t, 1, reps[0].Normalize.Reasons[app.ReasonMissingSource])
	assert.Equal(t, 1, reps[0].Loaded)

	totals, err := repo.SourceTotals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "CBE", totals[0].Source)

	stored, err := repo.ListReviews(ctx, "CBE")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Google Play Store", stored[0].Provenance)
}

func TestRun_NewEmptySourceIsVisibleThroughCache(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, nil, cache, time.Minute)

	_, err := q.Totals(ctx)
	require.NoError(t, err)

	svc := newPipeline(t, repo, nil, cache)
	rep, err := svc.Run(ctx, boa, []domain.RawRecord{{"text": "", "rating": 3.0, "source": "BOA"}})
	require.NoError(t, err)
	assert.Zero(t, rep.Loaded)

	sr, err := q.SourceReport(ctx, "BOA")
	require.NoError(t, err)
	assert.Zero(t, sr.ReviewCount)
}
