package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	totals  []domain.SourceTotals
	reviews []domain.Review
	listErr error

	listCalls int
}

func (f *fakeRepo) UpsertSource(ctx context.Context, s domain.Source) (int64, error) { return 1, nil }
func (f *fakeRepo) UpsertReviews(ctx context.Context, id int64, rs []domain.Review) error {
	return nil
}
func (f *fakeRepo) CountReviews(ctx context.Context, source string) (int, error) { return 0, nil }
func (f *fakeRepo) CountExisting(ctx context.Context, ids []string) (int, error) {
	return 0, nil
}
func (f *fakeRepo) SourceTotals(ctx context.Context) ([]domain.SourceTotals, error) {
	return f.totals, nil
}
func (f *fakeRepo) ListReviews(ctx context.Context, source string) ([]domain.Review, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Review
	for _, r := range f.reviews {
		if source == "" || r.SourceName == source {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeCache stores JSON like the redis adapter does.
type fakeCache struct {
	store   map[string][]byte
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		totals: []domain.SourceTotals{
			{Source: "BOA", AppName: "BOA Mobile Banking", TotalReviews: 1},
			{Source: "CBE", AppName: "CBE Mobile Banking", TotalReviews: 2},
		},
		reviews: []domain.Review{
			{ID: "1", SourceName: "CBE", Rating: pint(5), SentimentLabel: domain.SentimentPositive},
			{ID: "2", SourceName: "CBE", Rating: pint(3), SentimentLabel: domain.SentimentNeutral},
			{ID: "3", SourceName: "BOA", Rating: pint(1), SentimentLabel: domain.SentimentNegative},
		},
	}
}

// ---- tests ----

func TestSourceReport_CacheMissThenHit(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, nil, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	rep, err := q.SourceReport(context.Background(), "cbe")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep.Source != "CBE" || rep.ReviewCount != 2 || rep.MeanRating == nil || *rep.MeanRating != 4 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.reviews = nil

	rep2, err := q.SourceReport(context.Background(), "CBE")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep2.ReviewCount != 2 {
		t.Fatalf("expected cached report, got %+v", rep2)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected 1 repo read, got %d", repo.listCalls)
	}
}

func TestSourceReport_UnknownSource(t *testing.T) {
	q := app.NewQueryService(newFakeRepo(), nil, nil, 0)
	_, err := q.SourceReport(context.Background(), "Dashen")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverview_NoCacheWhenTTLZero(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, nil, cache, 0)

	for i := 0; i < 2; i++ {
		rep, err := q.Overview(context.Background())
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if len(rep.Sources) != 2 || rep.Overall.ReviewCount != 3 {
			t.Fatalf("unexpected overview: %+v", rep)
		}
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected every call to hit the repo, got %d", repo.listCalls)
	}
	if len(cache.store) != 0 {
		t.Fatalf("expected empty cache, got %d keys", len(cache.store))
	}
}

func TestOverview_RepoError(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db down")
	q := app.NewQueryService(repo, nil, &fakeCache{}, time.Minute)
	if _, err := q.Overview(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestTotals_Cached(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	q := app.NewQueryService(repo, nil, cache, time.Minute)

	if _, err := q.Totals(context.Background()); err != nil {
		t.Fatalf("err: %v", err)
	}
	repo.totals = nil
	out, err := q.Totals(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[1].Source != "CBE" {
		t.Fatalf("expected cached totals, got %+v", out)
	}
}
