//go:build unit

package cache

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/thehashton/alterun/internal/config"
)

func newTestCache(t *testing.T, ttlSeconds int) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{
		FilePath:   filepath.Join(t.TempDir(), "cache.db"),
		TTLSeconds: ttlSeconds,
	})
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t, 60)

	if err := c.Set("/codex", []byte("<html>listing</html>")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get("/codex")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("<html>listing</html>")) {
		t.Errorf("unexpected value %q", got)
	}

	// A miss is nil, not an error.
	got, err = c.Get("/missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss, got %q", got)
	}

	if err := c.Delete("/codex"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err = c.Get("/codex")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss after delete, got %q", got)
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	c := newTestCache(t, 60)

	if err := c.Set("/codex", []byte("old")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("/codex", []byte("new")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get("/codex")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := newTestCache(t, 60)

	// Write a row whose expiry is already in the past.
	_, err := c.db.Exec(`INSERT INTO render_cache (key, value, expires_at) VALUES (?, ?, ?)`,
		"/stale", []byte("stale"), time.Now().Add(-time.Minute).Unix())
	if err != nil {
		t.Fatalf("failed to insert stale row: %v", err)
	}

	got, err := c.Get("/stale")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired entry to miss, got %q", got)
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := newTestCache(t, 60)

	for _, key := range []string{"/codex", "/codex?page=2", "/codex/iron-keep", "/categories"} {
		if err := c.Set(key, []byte("body")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := c.DeletePrefix("/codex"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	for _, key := range []string{"/codex", "/codex?page=2", "/codex/iron-keep"} {
		got, err := c.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected %q dropped by prefix delete", key)
		}
	}
	got, err := c.Get("/categories")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Error("expected /categories to survive an unrelated prefix delete")
	}
}
