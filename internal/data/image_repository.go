package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ImageRepository handles database operations for entry images.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// ListByEntry retrieves the images of an entry ordered by sort order.
func (r *ImageRepository) ListByEntry(ctx context.Context, entryID string) ([]EntryImage, error) {
	var images []EntryImage
	query := `SELECT id, entry_id, url, caption, sort_order, created_at
		FROM codex_entry_images WHERE entry_id = ? ORDER BY sort_order`
	if err := r.db.SelectContext(ctx, &images, query, entryID); err != nil {
		return nil, fmt.Errorf("failed to list entry images: %w", err)
	}
	return images, nil
}

// GetByID retrieves a single image row. Not found is not an error.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (*EntryImage, error) {
	var image EntryImage
	query := `SELECT id, entry_id, url, caption, sort_order, created_at
		FROM codex_entry_images WHERE id = ?`
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry image by id: %w", err)
	}
	return &image, nil
}

// GetAll retrieves every entry image ordered by sort order, for the export snapshot.
func (r *ImageRepository) GetAll(ctx context.Context) ([]*EntryImage, error) {
	var images []*EntryImage
	query := `SELECT id, entry_id, url, caption, sort_order, created_at
		FROM codex_entry_images ORDER BY sort_order`
	if err := r.db.SelectContext(ctx, &images, query); err != nil {
		return nil, fmt.Errorf("failed to get all entry images: %w", err)
	}
	return images, nil
}

// Create inserts a new image row. Sort order is caller-assigned and is never
// renumbered after deletions.
func (r *ImageRepository) Create(ctx context.Context, image *EntryImage) error {
	query := `INSERT INTO codex_entry_images (id, entry_id, url, caption, sort_order, created_at)
		VALUES (:id, :entry_id, :url, :caption, :sort_order, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("failed to create entry image: %w", err)
	}
	return nil
}

// Update rewrites an existing image row. A zero rows-affected count is not
// treated as missing: MySQL reports changed rows, not matched rows, so an
// update that resubmits identical values affects nothing. Callers check
// existence with GetByID first.
func (r *ImageRepository) Update(ctx context.Context, image *EntryImage) error {
	query := `UPDATE codex_entry_images
		SET url = :url, caption = :caption, sort_order = :sort_order
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("failed to update entry image: %w", err)
	}
	return nil
}

// Delete removes an image row.
func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM codex_entry_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry image: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no entry image found to delete with id %s", id)
	}
	return nil
}
