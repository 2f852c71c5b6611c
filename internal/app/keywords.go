package app

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTopKeywords = 5
	minTokenLength     = 3
)

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all also am an and any are aren't as at be because been before being
		below between both but by can can't cannot could couldn't did didn't do does doesn't doing don't down
		during each even ever every few for from further get gets got had hadn't has hasn't have haven't having
		he her here hers herself him himself his how however i if in into is isn't it it's its itself just let
		me more most much must my myself no nor not now of off on once only or other ought our ours ourselves out
		over own same she should shouldn't so some still such than that that's the their theirs them themselves
		then there these they this those through to too under until up upon very was wasn't we were weren't what
		when where which while who whom why will with won't would wouldn't yet you your yours yourself yourselves
		app apps application really please also thing things one way lot`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokenize lowercases text and returns its content unigrams in order:
// stopwords, pure numbers and tokens shorter than three runes are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if utf8.RuneCountInString(f) < minTokenLength {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if isNumeric(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// CorpusStats holds document frequencies over one batch. It is built once per
// Enrich call and must be complete before any keyword is selected.
type CorpusStats struct {
	Docs int
	DF   map[string]int
}

func BuildCorpusStats(docs [][]string) CorpusStats {
	cs := CorpusStats{Docs: len(docs), DF: make(map[string]int)}
	for _, toks := range docs {
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			cs.DF[t]++
		}
	}
	return cs
}

// IDF uses the smoothed form ln((1+N)/(1+df)) + 1, so terms present in every document still score.
func (cs CorpusStats) IDF(term string) float64 {
	return math.Log(float64(1+cs.Docs)/float64(1+cs.DF[term])) + 1
}

// TopKeywords ranks the distinct tokens of one document by tf-idf and returns at most n of them.
// Equal scores keep first-occurrence order.
func TopKeywords(cs CorpusStats, tokens []string, n int) []string {
	if n <= 0 || len(tokens) == 0 {
		return nil
	}
	type cand struct {
		term  string
		first int
		tf    int
	}
	var cands []*cand
	byTerm := map[string]*cand{}
	for i, t := range tokens {
		if c, ok := byTerm[t]; ok {
			c.tf++
			continue
		}
		c := &cand{term: t, first: i, tf: 1}
		byTerm[t] = c
		cands = append(cands, c)
	}

	total := float64(len(tokens))
	score := func(c *cand) float64 { return float64(c.tf) / total * cs.IDF(c.term) }
	sort.SliceStable(cands, func(i, j int) bool {
		si, sj := score(cands[i]), score(cands[j])
		if si != sj {
			return si > sj
		}
		return cands[i].first < cands[j].first
	})

	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.term
	}
	return out
}
