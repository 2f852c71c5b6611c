package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"fintech_reviews/internal/adapters/observability"
	"fintech_reviews/internal/domain"
)

const DefaultBatchSize = 500

type RowFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type LoadReport struct {
	Source           string       `json:"source"`
	Submitted        int          `json:"submitted"` // distinct ids
	RepeatedIDs      int          `json:"repeated_ids"`
	BatchesAttempted int          `json:"batches_attempted"`
	BatchesCommitted int          `json:"batches_committed"`
	RowsWritten      int          `json:"rows_written"`
	RowsFailed       []RowFailure `json:"rows_failed"`
	FailedBatches    []int        `json:"failed_batches"`
	Unsubmitted      int          `json:"unsubmitted"`

	// verification
	StoredForSource int      `json:"stored_for_source"`
	PresentIDs      int      `json:"present_ids"`
	Warnings        []string `json:"warnings"`
}

type Loader struct {
	repo      domain.ReviewRepository
	batchSize int
	workers   int
}

type LoaderOption func(*Loader)

func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithLoadWorkers allows up to n batches in flight at once. Batches hold disjoint ids.
func WithLoadWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

func NewLoader(repo domain.ReviewRepository, opts ...LoaderOption) *Loader {
	l := &Loader{repo: repo, batchSize: DefaultBatchSize, workers: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type batchResult struct {
	attempted bool
	committed bool
	written   int
	failed    []RowFailure
}

// Load persists reviews for src. The source row is written first; if that fails nothing
// else is attempted and the error is returned. Batch failures are reported, not returned.
func (l *Loader) Load(ctx context.Context, src domain.Source, reviews []domain.Review) (LoadReport, error) {
	rep := LoadReport{Source: src.Name}

	sourceID, err := l.repo.UpsertSource(ctx, src)
	if err != nil {
		return rep, fmt.Errorf("upsert source %s: %w", src.Name, err)
	}

	unique, ids := dedupeByID(reviews)
	rep.Submitted = len(unique)
	rep.RepeatedIDs = len(reviews) - len(unique)

	batches := partition(unique, l.batchSize)
	results := make([]batchResult, len(batches))

	sem := semaphore.NewWeighted(int64(l.workers))
	var wg sync.WaitGroup
	var cancelErr error
	for i, b := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			cancelErr = err
			break
		}
		wg.Add(1)
		go func(i int, b []domain.Review) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = l.loadBatch(ctx, src.Name, sourceID, i, b)
		}(i, b)
	}
	wg.Wait()

	for i, r := range results {
		if !r.attempted {
			rep.Unsubmitted += len(batches[i])
			continue
		}
		rep.BatchesAttempted++
		if r.committed {
			rep.BatchesCommitted++
		} else {
			rep.FailedBatches = append(rep.FailedBatches, i)
		}
		rep.RowsWritten += r.written
		rep.RowsFailed = append(rep.RowsFailed, r.failed...)
	}

	if cancelErr != nil {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("cancelled: %d reviews in unsubmitted batches", rep.Unsubmitted))
		return rep, fmt.Errorf("load %s: %w", src.Name, cancelErr)
	}

	l.verify(ctx, &rep, ids)
	return rep, nil
}

func (l *Loader) loadBatch(ctx context.Context, source string, sourceID int64, idx int, batch []domain.Review) batchResult {
	res := batchResult{attempted: true}
	err := l.repo.UpsertReviews(ctx, sourceID, batch)
	if err == nil {
		res.committed = true
		res.written = len(batch)
		observability.ObserveBatch(source, true)
		return res
	}
	observability.ObserveBatch(source, false)
	log.Warn().Err(err).Str("source", source).Int("batch", idx).Int("rows", len(batch)).
		Msg("batch rolled back; retrying rows individually")

	// one transaction per row isolates the offending ids
	for _, rv := range batch {
		if rerr := l.repo.UpsertReviews(ctx, sourceID, []domain.Review{rv}); rerr != nil {
			res.failed = append(res.failed, RowFailure{ID: rv.ID, Reason: rerr.Error()})
			continue
		}
		res.written++
	}
	return res
}

// verify compares store counts with what this run expects to be present. Mismatches are warnings.
func (l *Loader) verify(ctx context.Context, rep *LoadReport, ids []string) {
	stored, err := l.repo.CountReviews(ctx, rep.Source)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("verify: count reviews: %v", err))
		stored = -1
	} else {
		rep.StoredForSource = stored
	}

	present, err := l.repo.CountExisting(ctx, ids)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("verify: count ids: %v", err))
		return
	}
	rep.PresentIDs = present

	expected := rep.Submitted - len(rep.RowsFailed)
	if present != expected {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("integrity: %d of %d expected ids present", present, expected))
	}
	if stored >= 0 && stored < present {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("integrity: source holds %d rows but %d submitted ids are present", stored, present))
	}
}

// dedupeByID keeps the first review for each id and returns the kept ids in order.
func dedupeByID(reviews []domain.Review) ([]domain.Review, []string) {
	seen := make(map[string]struct{}, len(reviews))
	out := make([]domain.Review, 0, len(reviews))
	ids := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		if _, ok := seen[rv.ID]; ok {
			continue
		}
		seen[rv.ID] = struct{}{}
		out = append(out, rv)
		ids = append(ids, rv.ID)
	}
	return out, ids
}

func partition(reviews []domain.Review, size int) [][]domain.Review {
	var out [][]domain.Review
	for start := 0; start < len(reviews); start += size {
		end := start + size
		if end > len(reviews) {
			end = len(reviews)
		}
		out = append(out, reviews[start:end])
	}
	return out
}
