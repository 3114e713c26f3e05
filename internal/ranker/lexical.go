package ranker

import (
	"context"
	"math"
)

// Lexical scores candidates by cosine similarity of term-frequency vectors.
// It needs no external services and acts as the baseline strategy when the
// embedding model is unavailable.
type Lexical struct{}

// NewLexical creates the lexical scorer.
func NewLexical() *Lexical {
	return &Lexical{}
}

func (l *Lexical) Name() string { return "lexical" }

// Score returns the maximum term-frequency cosine similarity between the
// query and any single surface.
func (l *Lexical) Score(_ context.Context, query string, surfaces []string) (float64, error) {
	qCounts := termCounts(Tokenize(query))
	qNorm := vectorNorm(qCounts)

	best := 0.0
	for _, s := range surfaces {
		sCounts := termCounts(Tokenize(s))
		dot := 0.0
		for term, qc := range qCounts {
			dot += float64(qc * sCounts[term])
		}
		sim := dot / (qNorm * vectorNorm(sCounts))
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// Accept is true for any positive similarity. The resolver's actual lexical
// accept decision is the even coarser TokenHit bar; this method exists so
// Lexical satisfies Scorer for callers that want the scored form.
func (l *Lexical) Accept(score float64) bool {
	return score > 0
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

// vectorNorm returns the L2 norm of a term-frequency vector, never zero so
// it is safe as a divisor.
func vectorNorm(counts map[string]int) float64 {
	sum := 0
	for _, v := range counts {
		sum += v * v
	}
	if sum == 0 {
		return 1.0
	}
	return math.Sqrt(float64(sum))
}
