//go:build integration

package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func makeImage(entryID, url string, sortOrder int) *EntryImage {
	return &EntryImage{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		URL:       url,
		SortOrder: sortOrder,
		CreatedAt: time.Now().UTC(),
	}
}

func TestImageRepository_ListByEntry_OrdersBySortOrder(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	entries := NewEntryRepository(db)
	images := NewImageRepository(db)
	ctx := context.Background()

	entry := makeEntry("Iron Keep", "iron-keep")
	if err := entries.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}
	for _, img := range []*EntryImage{
		makeImage(entry.ID, "https://cdn/c.jpg", 2),
		makeImage(entry.ID, "https://cdn/a.jpg", 0),
		makeImage(entry.ID, "https://cdn/b.jpg", 1),
	} {
		if err := images.Create(ctx, img); err != nil {
			t.Fatalf("Create image failed: %v", err)
		}
	}

	got, err := images.ListByEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("ListByEntry failed: %v", err)
	}
	want := []string{"https://cdn/a.jpg", "https://cdn/b.jpg", "https://cdn/c.jpg"}
	if len(got) != 3 {
		t.Fatalf("expected 3 images, got %d", len(got))
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Fatalf("expected order %v, got %+v", want, got)
		}
	}
}

func TestImageRepository_UpdateAndDelete(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	entries := NewEntryRepository(db)
	images := NewImageRepository(db)
	ctx := context.Background()

	entry := makeEntry("Iron Keep", "iron-keep")
	if err := entries.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}
	image := makeImage(entry.ID, "https://cdn/a.jpg", 0)
	if err := images.Create(ctx, image); err != nil {
		t.Fatalf("Create image failed: %v", err)
	}

	caption := "the western gate"
	image.Caption = &caption
	image.SortOrder = 5
	if err := images.Update(ctx, image); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	found, err := images.GetByID(ctx, image.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if found == nil || found.Caption == nil || *found.Caption != caption || found.SortOrder != 5 {
		t.Fatalf("expected updated image, got %+v", found)
	}

	if err := images.Delete(ctx, image.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	found, err = images.GetByID(ctx, image.ID)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil after delete, got %+v", found)
	}
}

func TestImageRepository_UpdateWithoutChanges(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	entries := NewEntryRepository(db)
	images := NewImageRepository(db)
	ctx := context.Background()

	entry := makeEntry("Iron Keep", "iron-keep")
	if err := entries.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}
	image := makeImage(entry.ID, "https://cdn/a.jpg", 0)
	if err := images.Create(ctx, image); err != nil {
		t.Fatalf("Create image failed: %v", err)
	}

	// Resubmitting identical values affects zero rows on drivers that report
	// changed rows rather than matched rows. That must not look like a
	// missing row; existence is the caller's concern.
	if err := images.Update(ctx, image); err != nil {
		t.Errorf("Update with unchanged values failed: %v", err)
	}
	if err := images.Update(ctx, makeImage(entry.ID, "https://cdn/ghost.jpg", 9)); err != nil {
		t.Errorf("Update of an unknown id should be a no-op, got: %v", err)
	}
}

func TestImageRepository_DeleteEntryCascades(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	entries := NewEntryRepository(db)
	images := NewImageRepository(db)
	ctx := context.Background()

	entry := makeEntry("Iron Keep", "iron-keep")
	if err := entries.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}
	if err := images.Create(ctx, makeImage(entry.ID, "https://cdn/a.jpg", 0)); err != nil {
		t.Fatalf("Create image failed: %v", err)
	}

	if err := entries.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	all, err := images.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected cascade to remove images, got %d", len(all))
	}
}
