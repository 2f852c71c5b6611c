package app

import (
	"sort"

	"fintech_reviews/internal/domain"
)

const (
	DefaultTopTerms = 5
	OverallSource   = "overall"
)

// Aggregator projects stored reviews into per-source statistics. It holds no state between calls.
type Aggregator struct {
	catalog ThemeCatalog
	topN    int
}

func NewAggregator(catalog ThemeCatalog, topN int) *Aggregator {
	if len(catalog) == 0 {
		catalog = DefaultThemeCatalog()
	}
	if topN <= 0 {
		topN = DefaultTopTerms
	}
	return &Aggregator{catalog: catalog, topN: topN}
}

type termStat struct {
	domain.RankedTerm
	order int // catalog index for themes, first-seen index for keywords
}

// Summarize computes the report for one source over reviews. reviews are assumed to belong to source.
func (a *Aggregator) Summarize(source string, reviews []domain.Review) domain.SourceReport {
	rep := domain.SourceReport{Source: source, ReviewCount: len(reviews)}

	var ratingSum int
	terms := map[domain.TermKind]map[string]*termStat{
		domain.TermTheme:   {},
		domain.TermKeyword: {},
	}
	nextKeyword := 0
	nextUnknownTheme := len(a.catalog)

	for _, rv := range reviews {
		switch rv.SentimentLabel {
		case domain.SentimentPositive:
			rep.Sentiment.Positive++
		case domain.SentimentNegative:
			rep.Sentiment.Negative++
		case domain.SentimentNeutral:
			rep.Sentiment.Neutral++
		}

		high, low := false, false
		if rv.Rating != nil {
			rep.RatedCount++
			ratingSum += *rv.Rating
			high, low = *rv.Rating >= 4, *rv.Rating <= 2
		}
		if high {
			rep.HighBand++
		}
		if low {
			rep.LowBand++
		}

		visit := func(kind domain.TermKind, term string, seen map[string]struct{}) {
			if term == "" {
				return
			}
			if _, dup := seen[term]; dup {
				return
			}
			seen[term] = struct{}{}
			ts, ok := terms[kind][term]
			if !ok {
				ts = &termStat{RankedTerm: domain.RankedTerm{Term: term, Kind: kind}}
				if kind == domain.TermTheme {
					if ts.order = a.catalog.Index(term); ts.order < 0 {
						ts.order = nextUnknownTheme
						nextUnknownTheme++
					}
				} else {
					ts.order = nextKeyword
					nextKeyword++
				}
				terms[kind][term] = ts
			}
			if high {
				ts.HighCount++
			}
			if low {
				ts.LowCount++
			}
		}
		seenThemes := map[string]struct{}{}
		for _, th := range rv.Themes {
			visit(domain.TermTheme, th, seenThemes)
		}
		seenKeywords := map[string]struct{}{}
		for _, kw := range rv.Keywords {
			visit(domain.TermKeyword, kw, seenKeywords)
		}
	}

	rep.Sentiment.Labeled = rep.Sentiment.Positive + rep.Sentiment.Negative + rep.Sentiment.Neutral
	if rep.RatedCount > 0 {
		mean := float64(ratingSum) / float64(rep.RatedCount)
		rep.MeanRating = &mean
	}

	var drivers, pains []*termStat
	for _, kind := range []domain.TermKind{domain.TermTheme, domain.TermKeyword} {
		for _, ts := range terms[kind] {
			hs, ls := share(ts.HighCount, rep.HighBand), share(ts.LowCount, rep.LowBand)
			if ts.HighCount > 0 && hs > ls {
				drivers = append(drivers, ts)
			}
			if ts.LowCount > 0 && ls > hs {
				pains = append(pains, ts)
			}
		}
	}
	rep.Drivers = a.rank(drivers, func(t *termStat) int { return t.HighCount })
	rep.PainPoints = a.rank(pains, func(t *termStat) int { return t.LowCount })
	return rep
}

// Report summarizes every source present in reviews (sorted by name) plus all of them together.
func (a *Aggregator) Report(reviews []domain.Review) domain.Report {
	bySource := map[string][]domain.Review{}
	for _, rv := range reviews {
		bySource[rv.SourceName] = append(bySource[rv.SourceName], rv)
	}
	names := make([]string, 0, len(bySource))
	for n := range bySource {
		names = append(names, n)
	}
	sort.Strings(names)

	out := domain.Report{Sources: make([]domain.SourceReport, 0, len(names))}
	for _, n := range names {
		out.Sources = append(out.Sources, a.Summarize(n, bySource[n]))
	}
	out.Overall = a.Summarize(OverallSource, reviews)
	return out
}

// rank orders by band count descending, then themes before keywords, then by order.
func (a *Aggregator) rank(ts []*termStat, count func(*termStat) int) []domain.RankedTerm {
	sort.Slice(ts, func(i, j int) bool {
		ci, cj := count(ts[i]), count(ts[j])
		if ci != cj {
			return ci > cj
		}
		if ts[i].Kind != ts[j].Kind {
			return ts[i].Kind == domain.TermTheme
		}
		return ts[i].order < ts[j].order
	})
	if len(ts) > a.topN {
		ts = ts[:a.topN]
	}
	out := make([]domain.RankedTerm, len(ts))
	for i, t := range ts {
		out[i] = t.RankedTerm
	}
	return out
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
