package app

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"fintech_reviews/internal/domain"
)

// Rejection reasons reported by the normalizer.
const (
	ReasonMissingText   = "missing_text"
	ReasonMissingSource = "missing_source"
	ReasonForeignSource = "foreign_source"
)

const (
	DefaultMinTextLength = 3
	DefaultProvenance    = "Google Play Store"
	MissingDataTarget    = 0.05
)

type NormalizeReport struct {
	In         int            `json:"in"`
	Duplicates int            `json:"duplicates"`
	Rejected   int            `json:"rejected"`
	Retained   int            `json:"retained"`
	Reasons    map[string]int `json:"reasons"`

	MissingRating int `json:"missing_rating"`
	MissingDate   int `json:"missing_date"`
}

// MissingRatio is the share of absent optional cells (rating, date) among retained reviews.
func (r NormalizeReport) MissingRatio() float64 {
	if r.Retained == 0 {
		return 0
	}
	return float64(r.MissingRating+r.MissingDate) / float64(2*r.Retained)
}

type Normalizer struct {
	minTextLength     int
	defaultProvenance string
}

type NormalizerOption func(*Normalizer)

// WithMinTextLength sets the shortest text (in runes) a review may carry.
func WithMinTextLength(n int) NormalizerOption {
	return func(z *Normalizer) {
		if n < 1 {
			n = 1
		}
		z.minTextLength = n
	}
}

func WithDefaultProvenance(p string) NormalizerOption {
	return func(z *Normalizer) { z.defaultProvenance = p }
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	z := &Normalizer{minTextLength: DefaultMinTextLength, defaultProvenance: DefaultProvenance}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Normalize cleans and deduplicates raw records for target. It is deterministic:
// the same input always yields the same reviews with the same ids, in input order.
func (z *Normalizer) Normalize(target domain.Source, raw []domain.RawRecord) ([]domain.Review, NormalizeReport) {
	rep := NormalizeReport{In: len(raw), Reasons: map[string]int{}}
	out := make([]domain.Review, 0, len(raw))

	seenText := make(map[string]struct{}, len(raw))
	seenID := make(map[string]struct{}, len(raw))

	reject := func(reason string) {
		rep.Rejected++
		rep.Reasons[reason]++
	}

	for _, r := range raw {
		text := cleanText(lookupText(r))
		if text == "" || utf8.RuneCountInString(text) < z.minTextLength {
			reject(ReasonMissingText)
			continue
		}

		if strings.TrimSpace(target.Name) == "" {
			reject(ReasonMissingSource)
			continue
		}
		if name, supplied := sourceField(r); supplied {
			if name == "" {
				reject(ReasonMissingSource)
				continue
			}
			if !target.Matches(name) {
				reject(ReasonForeignSource)
				continue
			}
		}

		norm := strings.ToLower(text)
		textKey := target.Name + "\x00" + norm
		externalID := firstNonEmptyAlias(r, reviewAliases, "id")

		if _, dup := seenText[textKey]; dup {
			rep.Duplicates++
			continue
		}
		if externalID != nil {
			if _, dup := seenID[*externalID]; dup {
				rep.Duplicates++
				continue
			}
		}

		rv := domain.Review{
			SourceName: target.Name,
			Text:       text,
			Rating:     ratingFrom(r),
			Date:       dateFrom(r),
			Provenance: z.defaultProvenance,
		}
		if p := provenanceFrom(r); p != nil {
			rv.Provenance = *p
		}

		// ID → prefer explicit; else synthesize a stable hash.
		if externalID != nil {
			rv.ID = *externalID
		} else {
			rv.ID = DeriveReviewID(target.Name, norm, rv.Date)
		}
		// a derived id can collide with an external id seen earlier
		if _, dup := seenID[rv.ID]; dup {
			rep.Duplicates++
			continue
		}

		seenText[textKey] = struct{}{}
		seenID[rv.ID] = struct{}{}

		if rv.Rating == nil {
			rep.MissingRating++
		}
		if rv.Date == nil {
			rep.MissingDate++
		}
		out = append(out, rv)
	}

	rep.Retained = len(out)
	return out, rep
}

// DeriveReviewID hashes (source, normalized text, date). Two distinct reviews sharing all
// three collapse into one id; that collision risk is accepted for records without a native id.
func DeriveReviewID(source, normText string, date *string) string {
	d := ""
	if date != nil {
		d = *date
	}
	sum := sha1.Sum([]byte(strings.Join([]string{source, normText, d}, "|")))
	return hex.EncodeToString(sum[:])
}

func lookupText(r domain.RawRecord) string {
	for _, p := range reviewAliases["text"] {
		if s := lookupStr(r, p); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// cleanText trims and collapses internal whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SourceBatch is the slice of a mixed raw batch that belongs to one source.
type SourceBatch struct {
	Source  domain.Source
	Records []domain.RawRecord
}

// GroupBySource splits raw by the source each record names. Records naming no source,
// or a blank one, go to fallback; unknown names get an ad-hoc source of that name.
// Groups come out in first-seen order.
func GroupBySource(raw []domain.RawRecord, known []domain.Source, fallback domain.Source) []SourceBatch {
	var out []SourceBatch
	index := map[string]int{}

	add := func(src domain.Source, r domain.RawRecord) {
		i, ok := index[src.Name]
		if !ok {
			i = len(out)
			index[src.Name] = i
			out = append(out, SourceBatch{Source: src})
		}
		out[i].Records = append(out[i].Records, r)
	}

	for _, r := range raw {
		name, _ := sourceField(r)
		if name == "" {
			add(fallback, r)
			continue
		}
		src := domain.Source{Name: name}
		for _, k := range known {
			if k.Matches(name) {
				src = k
				break
			}
		}
		if fallback.Matches(name) {
			src = fallback
		}
		add(src, r)
	}
	return out
}
