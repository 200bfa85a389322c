// Package analysis scores transcript text for sentiment. The classifier is a
// small valence lexicon with negation and intensifier handling; the compound
// score is normalized to [-1, 1] and bucketed with the usual +-0.05 cutoffs.
package analysis

import (
	"math"
	"strings"
)

// Sentiment buckets.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

const (
	positiveCutoff = 0.05
	negativeCutoff = -0.05
)

var valence = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "happy": 2.7, "glad": 2.0, "joy": 2.8,
	"love": 3.2, "loved": 2.9, "like": 1.5, "calm": 1.3, "relaxed": 1.7,
	"proud": 2.2, "excited": 2.3, "hopeful": 1.9, "grateful": 2.4,
	"better": 1.9, "best": 3.2, "fine": 0.8, "okay": 0.9, "ok": 0.9,
	"amazing": 2.8, "wonderful": 2.7, "fun": 2.3, "enjoy": 2.2,
	"enjoyed": 2.2, "progress": 1.4, "win": 2.8, "won": 2.7,
	"confident": 2.2, "strong": 1.6, "rested": 1.5, "peaceful": 2.2,

	// negative
	"bad": -2.5, "sad": -2.1, "angry": -2.3, "anger": -2.3, "mad": -2.2,
	"hate": -2.7, "hated": -2.6, "anxious": -1.9, "anxiety": -1.9,
	"stress": -1.8, "stressed": -1.8, "worried": -1.8, "worry": -1.7,
	"tired": -1.4, "exhausted": -2.0, "lonely": -2.1, "alone": -1.0,
	"afraid": -2.0, "fear": -1.8, "scared": -2.0, "depressed": -2.7,
	"depression": -2.7, "hopeless": -2.6, "worse": -2.1, "worst": -3.1,
	"hurt": -1.9, "pain": -2.0, "cry": -1.9, "cried": -1.9,
	"upset": -1.9, "awful": -2.6, "terrible": -2.7, "horrible": -2.7,
	"failed": -2.2, "failure": -2.3, "overwhelmed": -2.0, "guilty": -2.1,
	"numb": -1.4, "empty": -1.5, "angst": -1.8, "frustrated": -2.0,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true, "cant": true,
	"dont": true, "didnt": true, "doesnt": true, "isnt": true,
	"wasnt": true, "wont": true, "hardly": true, "barely": true,
}

var intensifiers = map[string]float64{
	"very": 0.3, "really": 0.3, "so": 0.25, "extremely": 0.4,
	"totally": 0.3, "completely": 0.35, "quite": 0.15, "pretty": 0.15,
	"somewhat": -0.2, "slightly": -0.25, "little": -0.2, "bit": -0.2,
}

// negationWindow is how many preceding tokens a negator reaches over.
const negationWindow = 3

// Score returns the normalized compound valence of text in [-1, 1].
func Score(text string) float64 {
	tokens := tokenize(text)
	var sum float64
	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			continue
		}

		boost := 0.0
		negated := false
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			prev := tokens[j]
			if negators[prev] {
				negated = true
			}
			if b, ok := intensifiers[prev]; ok {
				boost += b
			}
		}

		if v > 0 {
			v += boost
		} else {
			v -= boost
		}
		if negated {
			v = -v * 0.74
		}
		sum += v
	}
	return normalize(sum)
}

// Classify buckets the compound score of text.
func Classify(text string) string {
	score := Score(text)
	switch {
	case score >= positiveCutoff:
		return SentimentPositive
	case score <= negativeCutoff:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// normalize maps an unbounded sum into [-1, 1].
func normalize(sum float64) float64 {
	const alpha = 15.0
	n := sum / math.Sqrt(sum*sum+alpha)
	if n > 1 {
		return 1
	}
	if n < -1 {
		return -1
	}
	return n
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
