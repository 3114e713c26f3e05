package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/penstream/broadcast/internal/config"
)

func testDB(t *testing.T, ttl time.Duration) *DB {
	t.Helper()
	db, err := OpenDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "cache.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
		AutoMigrate:     true,
	}, ttl)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestDBGetSet(t *testing.T) {
	db := testDB(t, time.Minute)
	ctx := context.Background()

	url := "https://images.pexels.com/1.jpg"
	if _, ok := db.Get(ctx, url); ok {
		t.Fatal("expected miss on empty database")
	}

	entry := NewEntry(url, []byte("abc"), "image/jpeg")
	if err := db.Set(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := db.Get(ctx, url)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got.Body) != "abc" || got.ContentType != "image/jpeg" {
		t.Errorf("entry = %+v, want body abc and image/jpeg", got)
	}
}

func TestDBUpsert(t *testing.T) {
	db := testDB(t, time.Minute)
	ctx := context.Background()

	url := "https://images.pexels.com/1.jpg"
	if err := db.Set(ctx, NewEntry(url, []byte("old"), "image/jpeg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.Set(ctx, NewEntry(url, []byte("new"), "image/jpeg")); err != nil {
		t.Fatalf("unexpected error on re-insert: %v", err)
	}

	got, ok := db.Get(ctx, url)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got.Body) != "new" {
		t.Errorf("body = %q, want new", got.Body)
	}
}

func TestDBExpiry(t *testing.T) {
	db := testDB(t, 10*time.Millisecond)
	ctx := context.Background()

	url := "https://images.pexels.com/1.jpg"
	if err := db.Set(ctx, NewEntry(url, []byte("abc"), "image/jpeg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := db.Get(ctx, url); ok {
		t.Error("expected expired row to miss")
	}
}
