package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LinkRepository handles database operations for related-entry edges.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a new LinkRepository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// ListBySource retrieves all outbound edges owned by the given entry.
func (r *LinkRepository) ListBySource(ctx context.Context, sourceEntryID string) ([]*Link, error) {
	var links []*Link
	query := `SELECT id, source_entry_id, target_entry_id, created_at
		FROM codex_links WHERE source_entry_id = ?`
	if err := r.db.SelectContext(ctx, &links, query, sourceEntryID); err != nil {
		return nil, fmt.Errorf("failed to list links for entry: %w", err)
	}
	return links, nil
}

// GetAll retrieves every link edge, for the export snapshot.
func (r *LinkRepository) GetAll(ctx context.Context) ([]*Link, error) {
	var links []*Link
	query := `SELECT id, source_entry_id, target_entry_id, created_at FROM codex_links`
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("failed to get all links: %w", err)
	}
	return links, nil
}

// ReplaceForEntry swaps the full outbound edge set of an entry: every existing
// edge is deleted and one edge per target id is inserted, inside a single
// transaction. The edge set is never patched incrementally.
func (r *LinkRepository) ReplaceForEntry(ctx context.Context, sourceEntryID string, targetEntryIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin link replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM codex_links WHERE source_entry_id = ?`, sourceEntryID); err != nil {
		return fmt.Errorf("failed to delete existing links: %w", err)
	}

	now := time.Now().UTC()
	for _, targetID := range targetEntryIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO codex_links (id, source_entry_id, target_entry_id, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), sourceEntryID, targetID, now)
		if err != nil {
			return fmt.Errorf("failed to insert link to %s: %w", targetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link replacement: %w", err)
	}
	return nil
}
