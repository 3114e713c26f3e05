package cache

import (
	"context"
	"sync"
	"time"

	"github.com/penstream/broadcast/internal/domain"
)

// Memory is the bounded, time-expiring in-process tier. Expired entries are
// dropped lazily on lookup; capacity pressure evicts the oldest entry.
// Duplicate-key inserts are last-writer-wins — bodies for one URL are
// assumed immutable within the expiry window.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*domain.CacheEntry
	capacity int
	ttl      time.Duration
}

// NewMemory creates the fast tier with the given entry capacity and TTL.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Memory{
		entries:  make(map[string]*domain.CacheEntry, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

func (m *Memory) Get(_ context.Context, url string) (*domain.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[url]
	if !ok {
		return nil, false
	}
	if entry.Expired(m.ttl) {
		delete(m.entries, url)
		return nil, false
	}
	return entry, true
}

func (m *Memory) Set(_ context.Context, entry *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.URL]; !exists && len(m.entries) >= m.capacity {
		m.evictOldest()
	}
	m.entries[entry.URL] = entry
	return nil
}

// Len reports the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictOldest removes the entry with the earliest insertion time. Called
// with the lock held.
func (m *Memory) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.InsertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.InsertedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
