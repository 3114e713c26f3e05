// Package resolver turns a free-text topic into a single playable media URL
// by walking an ordered fallback chain: video search, best-available video,
// photo search, best-available photo, default asset.
package resolver

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
	"github.com/penstream/broadcast/internal/ranker"
)

// Searcher is the candidate fetcher the resolver drives. Implementations
// fail soft; an empty result means "no information", not "none exist".
type Searcher interface {
	HasKey() bool
	SearchVideos(ctx context.Context, query string, page, perPage int) ([]domain.Candidate, error)
	SearchPhotos(ctx context.Context, query string, page, perPage int) ([]domain.Candidate, error)
}

// Config holds resolver tuning.
type Config struct {
	MaxAttempts  int
	PerPage      int
	HDMinWidth   int
	PageBackoff  time.Duration
	DefaultVideo string
}

// Resolver orchestrates search and ranking. Resolve never fails: every
// internal error degrades to the next fallback tier, terminating at the
// default asset.
type Resolver struct {
	search   Searcher
	semantic ranker.Scorer // nil when the embedding capability is absent
	cfg      Config
	rng      *rand.Rand
}

// New creates a Resolver. semantic may be nil; rng may be nil, in which case
// a time-seeded source is used (tests inject a fixed one).
func New(search Searcher, semantic ranker.Scorer, cfg Config, rng *rand.Rand) *Resolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 6
	}
	if cfg.HDMinWidth <= 0 {
		cfg.HDMinWidth = 1280
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{
		search:   search,
		semantic: semantic,
		cfg:      cfg,
		rng:      rng,
	}
}

// Resolve finds the best-scoring media for query.
func (r *Resolver) Resolve(ctx context.Context, query string) domain.ResolvedMedia {
	if !r.search.HasKey() {
		logger.CtxWarn(ctx, "Search API key missing, using default asset for %q", query)
		return r.defaultMedia()
	}

	tokens := domain.MediaQuery(query).Tokens()
	logger.CtxInfo(ctx, "Searching stock videos for %q (tokens: %v)", query, tokens)

	// Fallback-of-last-resort: one unmatched candidate remembered across
	// pages, returned only if no page yields an accepted match.
	var fallback *domain.Candidate

	for page := 1; page <= r.cfg.MaxAttempts; page++ {
		candidates, _ := r.search.SearchVideos(ctx, query, page, r.cfg.PerPage)
		if len(candidates) == 0 {
			r.wait(ctx)
			continue
		}

		// Prefer HD candidates first
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].MaxWidth() > candidates[j].MaxWidth()
		})

		for _, cand := range candidates {
			if !r.accepts(ctx, query, tokens, cand) {
				continue
			}
			best, ok := cand.BestFile(r.cfg.HDMinWidth)
			if !ok {
				continue
			}
			logger.CtxInfo(ctx, "Found matching video: %s", best.Link)
			return domain.ResolvedMedia{URL: best.Link, Type: domain.MediaTypeVideo, Matched: true}
		}

		pick := candidates[r.rng.Intn(len(candidates))]
		fallback = &pick
	}

	if fallback != nil {
		if best, ok := fallback.BestFile(r.cfg.HDMinWidth); ok {
			logger.CtxWarn(ctx, "No close match for %q, keeping candidate: %s", query, best.Link)
			return domain.ResolvedMedia{URL: best.Link, Type: domain.MediaTypeVideo, Matched: false}
		}
	}

	if media, ok := r.resolvePhoto(ctx, query, tokens); ok {
		return media
	}

	logger.CtxWarn(ctx, "No suitable media found for %q, using default asset", query)
	return r.defaultMedia()
}

// accepts runs the per-candidate decision: semantic threshold first when the
// capability is present, then the lexical token-hit rescue. The two scores
// are never combined.
func (r *Resolver) accepts(ctx context.Context, query string, tokens []string, cand domain.Candidate) bool {
	surfaces := cand.TextSurfaces()

	if r.semantic != nil && len(surfaces) > 0 {
		score, err := r.semantic.Score(ctx, query, surfaces)
		if err == nil && r.semantic.Accept(score) {
			logger.With(logger.Fields{"score": score}).
				Debug(ctx, "Semantic match for candidate %d", cand.ID)
			return true
		}
		if err != nil {
			logger.CtxDebug(ctx, "Semantic scoring failed for candidate %d: %v", cand.ID, err)
		}
	}

	return ranker.TokenHit(tokens, surfaces)
}

func (r *Resolver) resolvePhoto(ctx context.Context, query string, tokens []string) (domain.ResolvedMedia, bool) {
	logger.CtxInfo(ctx, "Falling back to photo search for %q", query)

	photos, _ := r.search.SearchPhotos(ctx, query, 1, r.cfg.PerPage)
	if len(photos) == 0 {
		return domain.ResolvedMedia{}, false
	}

	for _, photo := range photos {
		if !ranker.TokenHit(tokens, photo.TextSurfaces()) {
			continue
		}
		url := photo.Photo.Original
		if url == "" {
			url = photo.Photo.Large
		}
		if url == "" {
			continue
		}
		logger.CtxInfo(ctx, "Found matching photo: %s", url)
		return domain.ResolvedMedia{URL: url, Type: domain.MediaTypeImage, Matched: true}, true
	}

	if first := photos[0].Photo.Original; first != "" {
		logger.CtxWarn(ctx, "No clear photo match for %q, returning first result", query)
		return domain.ResolvedMedia{URL: first, Type: domain.MediaTypeImage, Matched: false}, true
	}
	return domain.ResolvedMedia{}, false
}

func (r *Resolver) defaultMedia() domain.ResolvedMedia {
	return domain.ResolvedMedia{URL: r.cfg.DefaultVideo, Type: domain.MediaTypeVideo, Matched: false}
}

// wait sleeps the inter-page backoff, returning early on context cancel.
func (r *Resolver) wait(ctx context.Context) {
	if r.cfg.PageBackoff <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.PageBackoff):
	}
}
