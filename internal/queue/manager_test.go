package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/penstream/broadcast/internal/domain"
)

// stubResolver returns a fixed resolution and records the queries it saw.
type stubResolver struct {
	media   domain.ResolvedMedia
	queries []string
}

func (s *stubResolver) Resolve(_ context.Context, query string) domain.ResolvedMedia {
	s.queries = append(s.queries, query)
	return s.media
}

func testManager(t *testing.T, resolver MediaResolver) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "queue")
	m, err := NewManager(dir, 5, resolver)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m, dir
}

func TestLoadEmptyQueue(t *testing.T) {
	m, _ := testManager(t, nil)
	items, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty queue, got %d items", len(items))
	}
}

func TestAddResolvesMedia(t *testing.T) {
	resolver := &stubResolver{media: domain.ResolvedMedia{
		URL:     "https://videos.pexels.com/1.mp4",
		Type:    domain.MediaTypeVideo,
		Matched: true,
	}}
	m, _ := testManager(t, resolver)

	item, err := m.Add(context.Background(), AddParams{Heading: "Rocket launch today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(item.ID) != 8 {
		t.Errorf("ID = %q, want 8 characters", item.ID)
	}
	if item.Type != "headline" {
		t.Errorf("type = %q, want default headline", item.Type)
	}
	if item.DisplayDuration != 15 {
		t.Errorf("duration = %d, want default 15", item.DisplayDuration)
	}
	if item.MediaURL() != "https://videos.pexels.com/1.mp4" {
		t.Errorf("media URL = %q, want resolved URL", item.MediaURL())
	}
	if len(resolver.queries) != 1 || resolver.queries[0] != "Rocket launch today" {
		t.Errorf("resolver queries = %v, want the heading", resolver.queries)
	}
}

func TestAddSkipsResolutionWhenMediaPresent(t *testing.T) {
	resolver := &stubResolver{}
	m, _ := testManager(t, resolver)

	item, err := m.Add(context.Background(), AddParams{
		Heading: "Rocket launch",
		ExtraData: map[string]interface{}{
			domain.ExtraVideoURL: "https://videos.pexels.com/preset.mp4",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.MediaURL() != "https://videos.pexels.com/preset.mp4" {
		t.Errorf("media URL = %q, want the preset", item.MediaURL())
	}
	if len(resolver.queries) != 0 {
		t.Errorf("resolver should not run, saw queries %v", resolver.queries)
	}
}

func TestAddHighPriorityFront(t *testing.T) {
	m, _ := testManager(t, nil)
	ctx := context.Background()

	if _, err := m.Add(ctx, AddParams{Heading: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Add(ctx, AddParams{Heading: "breaking", Priority: "high"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].MainHeading != "breaking" {
		t.Errorf("head = %q, want the high priority item", items[0].MainHeading)
	}
}

func TestSaveCapsQueueSize(t *testing.T) {
	m, _ := testManager(t, nil)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if _, err := m.Add(ctx, AddParams{Heading: "item"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 5 {
		t.Errorf("len = %d, want cap of 5", len(items))
	}
}

func TestSaveMirrorsHeadItem(t *testing.T) {
	m, dir := testManager(t, nil)

	if _, err := m.Add(context.Background(), AddParams{Heading: "on air"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "current_item.json"))
	if err != nil {
		t.Fatalf("failed to read current item file: %v", err)
	}
	var head domain.QueueItem
	if err := json.Unmarshal(data, &head); err != nil {
		t.Fatalf("failed to parse current item file: %v", err)
	}
	if head.MainHeading != "on air" {
		t.Errorf("mirrored heading = %q, want on air", head.MainHeading)
	}
}

func TestSetPlayoutStampsServerTime(t *testing.T) {
	m, dir := testManager(t, nil)

	if err := m.SetPlayout(map[string]interface{}{"current_id": "abcd1234"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "playout_status.json"))
	if err != nil {
		t.Fatalf("failed to read playout file: %v", err)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("failed to parse playout file: %v", err)
	}
	if status["current_id"] != "abcd1234" {
		t.Errorf("current_id = %v, want abcd1234", status["current_id"])
	}
	if _, ok := status["server_time"].(float64); !ok {
		t.Error("expected a numeric server_time stamp")
	}
}

func TestFillMissing(t *testing.T) {
	resolver := &stubResolver{media: domain.ResolvedMedia{
		URL:  "https://videos.pexels.com/fill.mp4",
		Type: domain.MediaTypeVideo,
	}}
	m, dir := testManager(t, resolver)

	seed := []domain.QueueItem{
		{ID: "aaaa1111", MainHeading: "has media", ExtraData: map[string]interface{}{
			domain.ExtraVideoURL: "https://videos.pexels.com/existing.mp4",
		}},
		{ID: "bbbb2222", MainHeading: "needs media"},
		{ID: "cccc3333", ContentText: "body only"},
	}
	if err := m.Save(seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed, err := m.FillMissing(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	if got := resolver.queries; len(got) != 2 || got[0] != "needs media" || got[1] != "body only" {
		t.Errorf("resolver queries = %v, want heading then content fallback", got)
	}

	items, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].MediaURL() != "https://videos.pexels.com/existing.mp4" {
		t.Error("existing media must not be overwritten")
	}
	if items[1].MediaURL() != "https://videos.pexels.com/fill.mp4" {
		t.Errorf("item media = %q, want the resolved URL", items[1].MediaURL())
	}

	// A backup of the original file should exist
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list queue dir: %v", err)
	}
	foundBackup := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "run_of_show.json.bak.") {
			foundBackup = true
		}
	}
	if !foundBackup {
		t.Error("expected a run_of_show.json.bak.* file")
	}
}

func TestFillMissingNoChanges(t *testing.T) {
	resolver := &stubResolver{media: domain.ResolvedMedia{URL: "x"}}
	m, _ := testManager(t, resolver)

	seed := []domain.QueueItem{
		{ID: "aaaa1111", MainHeading: "has media", ExtraData: map[string]interface{}{
			domain.ExtraVideoURL: "https://videos.pexels.com/existing.mp4",
		}},
	}
	if err := m.Save(seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed, err := m.FillMissing(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0", changed)
	}
}

func TestFillMissingWithoutResolver(t *testing.T) {
	m, _ := testManager(t, nil)
	if _, err := m.FillMissing(context.Background(), 0); err == nil {
		t.Error("expected an error without a resolver")
	}
}
