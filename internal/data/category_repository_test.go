//go:build integration

package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func makeCategory(name, slug string, sortOrder int) *Category {
	now := time.Now().UTC()
	return &Category{
		ID:        uuid.NewString(),
		Slug:      slug,
		Name:      name,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCategoryRepository_CreateAndGet(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	category := makeCategory("Bestiary", "bestiary", 1)
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := repo.GetBySlug(ctx, "bestiary")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if found == nil || found.Name != "Bestiary" {
		t.Fatalf("expected Bestiary, got %+v", found)
	}

	found, err = repo.GetByID(ctx, category.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if found == nil || found.Slug != "bestiary" {
		t.Fatalf("expected bestiary, got %+v", found)
	}

	// Not found is nil, not an error.
	found, err = repo.GetByID(ctx, "no-such-id")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil, got %+v", found)
	}
}

func TestCategoryRepository_GetAll_OrdersBySortOrderThenName(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	for _, c := range []*Category{
		makeCategory("Zones", "zones", 2),
		makeCategory("Bestiary", "bestiary", 1),
		makeCategory("Artifacts", "artifacts", 2),
	} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	categories, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	got := make([]string, len(categories))
	for i, c := range categories {
		got[i] = c.Name
	}
	want := []string{"Bestiary", "Artifacts", "Zones"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestCategoryRepository_UpdateAndDelete(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	category := makeCategory("Bestiary", "bestiary", 1)
	if err := repo.Create(ctx, category); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	category.Name = "Creatures"
	category.Slug = "creatures"
	category.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, category); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	found, err := repo.GetBySlug(ctx, "creatures")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if found == nil || found.Name != "Creatures" {
		t.Fatalf("expected renamed category, got %+v", found)
	}

	if err := repo.Delete(ctx, category.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, category.ID); err == nil {
		t.Error("expected error deleting a missing category")
	}
}

func TestCategoryRepository_DeleteLeavesEntriesDangling(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	categories := NewCategoryRepository(db)
	entries := NewEntryRepository(db)
	ctx := context.Background()

	category := makeCategory("Bestiary", "bestiary", 1)
	if err := categories.Create(ctx, category); err != nil {
		t.Fatalf("Create category failed: %v", err)
	}
	entry := makeEntry("Gryphon", "gryphon")
	entry.CategoryID = &category.ID
	if err := entries.Create(ctx, entry); err != nil {
		t.Fatalf("Create entry failed: %v", err)
	}

	if err := categories.Delete(ctx, category.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The entry survives and keeps its now-dangling category reference.
	found, err := entries.GetBySlug(ctx, "gryphon")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected the entry to survive category deletion")
	}
	if found.CategoryID == nil || *found.CategoryID != category.ID {
		t.Errorf("expected dangling category id kept, got %v", found.CategoryID)
	}
}
