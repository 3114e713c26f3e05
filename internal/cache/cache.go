// Package cache implements the proxy's two-tier body cache: a bounded
// in-memory fast tier and a durable tier that survives restarts. Both tiers
// share one policy: only image bodies up to a fixed ceiling are cached, and
// entries time-expire lazily on lookup.
package cache

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
	_ "golang.org/x/image/webp"
)

// Store is one cache tier. Get misses are reported via the bool, never an
// error; Set failures are surfaced so callers can log them, but a failed
// write never fails the request that triggered it.
type Store interface {
	Get(ctx context.Context, url string) (*domain.CacheEntry, bool)
	Set(ctx context.Context, entry *domain.CacheEntry) error
}

// Tier identifies which cache tier served a hit, in the form the proxy
// reports via the X-Cache response header.
type Tier string

const (
	TierNone    Tier = "MISS"
	TierMemory  Tier = "HIT-MEM"
	TierDurable Tier = "HIT-DISK"
)

// Cacheable reports whether a response body may enter the cache: the content
// type must indicate an image and the declared length must not exceed
// maxBytes. An unknown length (-1) is eligible; the caller buffers the body
// to learn its actual size.
func Cacheable(contentType string, declaredLength, maxBytes int64) bool {
	if !strings.HasPrefix(contentType, "image") {
		return false
	}
	return declaredLength < 0 || declaredLength <= maxBytes
}

// NewEntry builds a CacheEntry for a fetched body, sniffing image dimensions
// best-effort (zero on failure). webp decoding is registered above alongside
// the stdlib formats.
func NewEntry(url string, body []byte, contentType string) *domain.CacheEntry {
	entry := &domain.CacheEntry{
		URLHash:     domain.HashURL(url),
		URL:         url,
		Body:        body,
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
		InsertedAt:  time.Now(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(body)); err == nil {
		entry.Width = cfg.Width
		entry.Height = cfg.Height
	}
	return entry
}

// Tiered is the single logical cache the proxy talks to: fast tier first,
// then durable, write-through to both on a miss.
type Tiered struct {
	fast    Store
	durable Store
}

// NewTiered combines the tiers. Either may be nil (disabled).
func NewTiered(fast, durable Store) *Tiered {
	return &Tiered{fast: fast, durable: durable}
}

// Get looks the URL up tier by tier and reports which one hit.
func (t *Tiered) Get(ctx context.Context, url string) (*domain.CacheEntry, Tier) {
	if t.fast != nil {
		if entry, ok := t.fast.Get(ctx, url); ok {
			return entry, TierMemory
		}
	}
	if t.durable != nil {
		if entry, ok := t.durable.Get(ctx, url); ok {
			return entry, TierDurable
		}
	}
	return nil, TierNone
}

// Set writes the entry through to every tier. Tier failures are logged and
// absorbed; a cache write must never fail the request.
func (t *Tiered) Set(ctx context.Context, entry *domain.CacheEntry) {
	if t.fast != nil {
		if err := t.fast.Set(ctx, entry); err != nil {
			logger.CtxWarn(ctx, "Fast cache tier write failed: %v", err)
		}
	}
	if t.durable != nil {
		if err := t.durable.Set(ctx, entry); err != nil {
			logger.CtxWarn(ctx, "Durable cache tier write failed: %v", err)
		}
	}
}
