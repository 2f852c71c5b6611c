package domain

// RawRecord is one record as produced by a review source: an unordered field bag.
type RawRecord map[string]any

type SentimentLabel string

const (
	SentimentNone     SentimentLabel = ""
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Sentiment is the scorer output for a single text. Absent fields stay zero/nil.
type Sentiment struct {
	Label SentimentLabel
	Score *float64
}

type Review struct {
	ID         string
	SourceName string
	Text       string
	Rating     *int    // 1..5
	Date       *string // YYYY-MM-DD
	Provenance string

	// annotations, written by the enricher only
	SentimentLabel SentimentLabel
	SentimentScore *float64
	Themes         []string
	Keywords       []string
}
