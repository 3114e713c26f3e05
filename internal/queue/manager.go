// Package queue owns the run-of-show files the broadcast player consumes.
// A Manager has exclusive ownership of its queue directory; there is no
// shared global state.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
)

const (
	runOfShowFile   = "run_of_show.json"
	currentItemFile = "current_item.json"
	playoutFile     = "playout_status.json"
)

// MediaResolver resolves a topic into playable media. Satisfied by
// resolver.Resolver; nil disables resolution on Add.
type MediaResolver interface {
	Resolve(ctx context.Context, query string) domain.ResolvedMedia
}

// Manager reads and writes the production queue files. All file access is
// serialized through the manager's mutex.
type Manager struct {
	mu       sync.Mutex
	dir      string
	maxSize  int
	resolver MediaResolver
}

// NewManager creates a queue manager for dir, creating it if needed.
func NewManager(dir string, maxSize int, resolver MediaResolver) (*Manager, error) {
	if maxSize <= 0 {
		maxSize = 50
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return &Manager{dir: dir, maxSize: maxSize, resolver: resolver}, nil
}

// Load reads the current run-of-show. A missing file is an empty queue.
func (m *Manager) Load() ([]domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() ([]domain.QueueItem, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, runOfShowFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.QueueItem{}, nil
		}
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	var items []domain.QueueItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse queue file: %w", err)
	}
	return items, nil
}

// Save writes the queue, capped to the recent window, and mirrors the head
// item to current_item.json for the player.
func (m *Manager) Save(items []domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(items)
}

func (m *Manager) save(items []domain.QueueItem) error {
	if len(items) > m.maxSize {
		items = items[:m.maxSize]
	}

	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, runOfShowFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}

	if len(items) > 0 {
		head, err := json.MarshalIndent(items[0], "", "    ")
		if err != nil {
			return fmt.Errorf("failed to encode current item: %w", err)
		}
		if err := os.WriteFile(filepath.Join(m.dir, currentItemFile), head, 0644); err != nil {
			return fmt.Errorf("failed to write current item: %w", err)
		}
	}
	return nil
}

// AddParams describes a segment to enqueue.
type AddParams struct {
	Type      string
	Heading   string
	Content   string
	Duration  int
	Priority  string // "high" inserts at the front
	ExtraData map[string]interface{}
}

// Add enqueues a segment. When the extra data carries no media URL and a
// resolver is configured, media is resolved from the heading before the item
// is written, so the stored fields always reflect the last ResolvedMedia.
func (m *Manager) Add(ctx context.Context, params AddParams) (*domain.QueueItem, error) {
	if params.Type == "" {
		params.Type = "headline"
	}
	if params.Duration <= 0 {
		params.Duration = 15
	}
	if params.ExtraData == nil {
		params.ExtraData = make(map[string]interface{})
	}

	item := domain.QueueItem{
		ID:              uuid.New().String()[:8],
		Type:            params.Type,
		MainHeading:     params.Heading,
		ContentText:     params.Content,
		DisplayDuration: params.Duration,
		Timestamp:       time.Now().Unix(),
		ExtraData:       params.ExtraData,
	}

	if item.MediaURL() == "" && m.resolver != nil {
		media := m.resolver.Resolve(ctx, params.Heading)
		item.SetMedia(media)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.load()
	if err != nil {
		return nil, err
	}

	if params.Priority == "high" {
		logger.CtxInfo(ctx, "Injecting high priority item: %s", params.Heading)
		items = append([]domain.QueueItem{item}, items...)
	} else {
		logger.CtxInfo(ctx, "Adding to queue: %s", params.Heading)
		items = append(items, item)
	}

	if err := m.save(items); err != nil {
		return nil, err
	}
	return &item, nil
}

// SetPlayout records which item is currently on air, stamped with server
// time for drift detection in the player.
func (m *Manager) SetPlayout(status map[string]interface{}) error {
	if status == nil {
		status = make(map[string]interface{})
	}
	status["server_time"] = float64(time.Now().UnixMilli()) / 1000.0

	data, err := json.MarshalIndent(status, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode playout status: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.WriteFile(filepath.Join(m.dir, playoutFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write playout status: %w", err)
	}
	return nil
}

// FillMissing resolves media for queued items that lack one, pacing calls to
// stay friendly to the search API. The queue file is backed up before being
// rewritten. Returns the number of items updated.
func (m *Manager) FillMissing(ctx context.Context, pace time.Duration) (int, error) {
	if m.resolver == nil {
		return 0, fmt.Errorf("no resolver configured")
	}

	items, err := m.Load()
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range items {
		if items[i].MediaURL() != "" {
			continue
		}
		heading := items[i].MainHeading
		if heading == "" {
			heading = items[i].ContentText
		}
		if heading == "" {
			heading = "news background"
		}

		logger.CtxInfo(ctx, "Resolving media for queued item %s: %q", items[i].ID, heading)
		media := m.resolver.Resolve(ctx, heading)
		items[i].SetMedia(media)
		changed++

		if pace > 0 {
			select {
			case <-ctx.Done():
				return changed, ctx.Err()
			case <-time.After(pace):
			}
		}
	}

	if changed == 0 {
		return 0, nil
	}

	if err := m.backup(); err != nil {
		logger.CtxWarn(ctx, "Queue backup failed: %v", err)
	}
	if err := m.Save(items); err != nil {
		return changed, err
	}
	return changed, nil
}

// backup copies the queue file aside with a timestamp suffix.
func (m *Manager) backup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := filepath.Join(m.dir, runOfShowFile)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	bak := fmt.Sprintf("%s.bak.%d", src, time.Now().Unix())
	return os.WriteFile(bak, data, 0644)
}
