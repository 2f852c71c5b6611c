package domain

// SourceTotals is one row of the review_statistics view.
type SourceTotals struct {
	Source        string   `json:"source"`
	AppName       string   `json:"app_name"`
	TotalReviews  int      `json:"total_reviews"`
	AverageRating *float64 `json:"average_rating"`
	Positive      int      `json:"positive_count"`
	Negative      int      `json:"negative_count"`
	Neutral       int      `json:"neutral_count"`
}

type SentimentDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Labeled  int `json:"labeled"` // denominator; unlabeled reviews excluded
}

// Share returns the fraction of labeled reviews carrying l, 0 when nothing is labeled.
func (d SentimentDistribution) Share(l SentimentLabel) float64 {
	if d.Labeled == 0 {
		return 0
	}
	var n int
	switch l {
	case SentimentPositive:
		n = d.Positive
	case SentimentNegative:
		n = d.Negative
	case SentimentNeutral:
		n = d.Neutral
	}
	return float64(n) / float64(d.Labeled)
}

type TermKind string

const (
	TermTheme   TermKind = "theme"
	TermKeyword TermKind = "keyword"
)

// RankedTerm is a theme or keyword with its frequency in the high (4-5) and low (1-2) rating bands.
type RankedTerm struct {
	Term      string   `json:"term"`
	Kind      TermKind `json:"kind"`
	HighCount int      `json:"high_count"`
	LowCount  int      `json:"low_count"`
}

type SourceReport struct {
	Source      string                `json:"source"`
	ReviewCount int                   `json:"review_count"`
	RatedCount  int                   `json:"rated_count"`
	MeanRating  *float64              `json:"mean_rating"`
	Sentiment   SentimentDistribution `json:"sentiment"`
	HighBand    int                   `json:"high_band_count"`
	LowBand     int                   `json:"low_band_count"`
	Drivers     []RankedTerm          `json:"drivers"`
	PainPoints  []RankedTerm          `json:"pain_points"`
}

// Report is the cross-source projection consumed by the reporting layer.
type Report struct {
	Sources []SourceReport `json:"sources"`
	Overall SourceReport   `json:"overall"`
}
