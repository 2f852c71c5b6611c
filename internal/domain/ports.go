package domain

import "context"

type SchemaManager interface {
	EnsureSchema(ctx context.Context) error
}

type ReviewRepository interface {
	// Write paths
	UpsertSource(ctx context.Context, s Source) (int64, error)
	// UpsertReviews writes rs in a single transaction; any error leaves none of rs written.
	UpsertReviews(ctx context.Context, sourceID int64, rs []Review) error

	// Read paths
	CountReviews(ctx context.Context, source string) (int, error)
	CountExisting(ctx context.Context, ids []string) (int, error)
	SourceTotals(ctx context.Context) ([]SourceTotals, error)
	ListReviews(ctx context.Context, source string) ([]Review, error) // "" lists every source
}

type SentimentScorer interface {
	Score(ctx context.Context, text string) (Sentiment, error)
}

type ReviewFeed interface {
	FetchReviews(ctx context.Context, src Source, count int) ([]RawRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
