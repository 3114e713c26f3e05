package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CacheEntry is one cached proxy body. The same record backs both cache
// tiers; only the durable tier persists it through GORM.
type CacheEntry struct {
	URLHash     string    `gorm:"type:text;primaryKey" json:"url_hash"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Body        []byte    `gorm:"type:blob" json:"-"`
	ContentType string    `gorm:"type:text" json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	InsertedAt  time.Time `gorm:"index" json:"inserted_at"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string {
	return "proxy_cache_entries"
}

// Expired reports whether the entry has outlived ttl.
func (e *CacheEntry) Expired(ttl time.Duration) bool {
	return time.Since(e.InsertedAt) > ttl
}

// HashURL derives the stable cache key for a media URL.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
