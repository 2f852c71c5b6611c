// Package sentiment provides the default rule-based sentiment scorer.
package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"fintech_reviews/internal/domain"
)

const (
	negationScalar  = -0.74
	intensifierStep = 0.293
	normAlpha       = 15.0
	negationWindow  = 3

	// compound scores inside (-Threshold, Threshold) are neutral
	Threshold = 0.05
)

// valence of common review vocabulary, on a -4..+4 scale.
var valence = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "excellent": 2.7, "best": 3.2, "better": 1.9, "love": 3.2, "loved": 2.9,
	"like": 1.5, "nice": 1.8, "amazing": 2.8, "awesome": 3.1, "perfect": 2.7, "wonderful": 2.7,
	"fantastic": 2.6, "happy": 2.7, "satisfied": 1.8, "thanks": 1.9, "thank": 1.5, "cool": 1.3,
	"easy": 1.9, "fast": 1.5, "quick": 1.2, "reliable": 1.8, "helpful": 1.8, "useful": 1.9,
	"convenient": 1.5, "smooth": 1.4, "simple": 0.9, "secure": 1.4, "safe": 1.9, "efficient": 1.6,
	"stable": 1.2, "works": 0.6, "working": 0.6, "friendly": 2.2, "recommend": 1.5, "super": 2.9,
	"fine": 0.8, "ok": 0.9, "okay": 0.9, "improved": 1.5, "enjoy": 2.2, "impressive": 2.3,
	// negative
	"bad": -2.5, "worst": -3.1, "worse": -2.1, "terrible": -2.5, "poor": -2.1, "horrible": -2.5,
	"awful": -2.0, "hate": -2.7, "slow": -1.5, "crash": -2.2, "crashes": -2.2, "crashing": -2.2,
	"crashed": -2.2, "error": -1.2, "errors": -1.2, "fail": -2.3, "fails": -2.3, "failed": -2.3,
	"failure": -2.3, "problem": -1.7, "problems": -1.7, "issue": -0.8, "issues": -0.8, "bug": -1.3,
	"bugs": -1.3, "useless": -1.8, "annoying": -1.7, "disappointed": -1.9, "disappointing": -2.2,
	"waste": -1.8, "frustrating": -2.0, "broken": -1.9, "stuck": -1.2, "difficult": -1.5,
	"confusing": -1.3, "complicated": -0.9, "unreliable": -1.9, "unstable": -1.4, "sucks": -1.5,
	"scam": -2.5, "fraud": -2.8, "lost": -1.3, "delay": -1.3, "delayed": -1.3, "boring": -1.3,
	"unable": -1.2, "rubbish": -2.1, "pathetic": -2.6, "ridiculous": -1.9,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nothing": {}, "neither": {}, "nor": {},
	"cannot": {}, "cant": {}, "dont": {}, "doesnt": {}, "didnt": {}, "isnt": {}, "wasnt": {},
	"wont": {}, "arent": {}, "without": {}, "hardly": {},
}

var intensifiers = map[string]struct{}{
	"very": {}, "really": {}, "extremely": {}, "so": {}, "too": {}, "totally": {}, "absolutely": {},
	"highly": {}, "incredibly": {}, "most": {}, "completely": {}, "quite": {},
}

// Scorer is a valence-lexicon scorer with negation and intensifier handling.
// The compound score is sum/sqrt(sum²+15), bounded in [-1,1].
type Scorer struct {
	lexicon map[string]float64
}

// NewLexiconScorer returns a scorer over the built-in lexicon, with extra entries overriding it.
func NewLexiconScorer(extra map[string]float64) *Scorer {
	lex := make(map[string]float64, len(valence)+len(extra))
	for k, v := range valence {
		lex[k] = v
	}
	for k, v := range extra {
		lex[strings.ToLower(k)] = v
	}
	return &Scorer{lexicon: lex}
}

func (s *Scorer) Score(ctx context.Context, text string) (domain.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Sentiment{}, err
	}
	c := s.Compound(text)
	return domain.Sentiment{Label: Label(c), Score: &c}, nil
}

// Compound returns the normalized sentiment of text; 0 when nothing in it carries valence.
func (s *Scorer) Compound(text string) float64 {
	toks := tokens(text)
	var sum float64
	for i, t := range toks {
		v, ok := s.lexicon[t]
		if !ok || v == 0 {
			continue
		}
		if i > 0 {
			if _, ok := intensifiers[toks[i-1]]; ok {
				v += math.Copysign(intensifierStep, v)
			}
		}
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			if isNegation(toks[j]) {
				v *= negationScalar
				break
			}
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normAlpha)
}

// Label maps a compound score onto the three sentiment labels.
func Label(compound float64) domain.SentimentLabel {
	switch {
	case compound >= Threshold:
		return domain.SentimentPositive
	case compound <= -Threshold:
		return domain.SentimentNegative
	}
	return domain.SentimentNeutral
}

func isNegation(t string) bool {
	if _, ok := negations[t]; ok {
		return true
	}
	return strings.HasSuffix(t, "n't")
}

func tokens(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
