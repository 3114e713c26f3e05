// Package ranker scores stock-media candidates against a search topic.
//
// Two strategies exist: a semantic one backed by a remote embedding model,
// and a lexical one computed locally. The semantic strategy is optional and
// selected once at startup by a feature-detection probe; the lexical one is
// the always-available baseline. Their scores live on different scales and
// are never combined — the resolver tries semantic first, then rescues a
// miss with the coarser lexical token-hit bar.
package ranker

import (
	"context"
	"strings"
)

// Scorer rates a set of candidate text surfaces against a query, returning a
// score in [0,1]. Accept() applies the strategy's own accept policy.
type Scorer interface {
	// Name identifies the strategy for logging.
	Name() string

	// Score returns the relevance of surfaces to query.
	Score(ctx context.Context, query string, surfaces []string) (float64, error)

	// Accept reports whether a score from this scorer crosses its accept
	// threshold.
	Accept(score float64) bool
}

// Tokenize splits text into lowercase alphanumeric tokens of length > 2.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, t := range fields {
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// TokenHit reports whether any of the query tokens appears verbatim in the
// concatenated candidate surfaces. This is the intentionally permissive
// heuristic bar: one hit is enough.
func TokenHit(tokens []string, surfaces []string) bool {
	if len(tokens) == 0 || len(surfaces) == 0 {
		return false
	}
	hay := strings.ToLower(strings.Join(surfaces, " "))
	for _, t := range tokens {
		if strings.Contains(hay, t) {
			return true
		}
	}
	return false
}
