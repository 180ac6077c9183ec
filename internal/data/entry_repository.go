package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const entryColumns = `id, slug, title, excerpt, body, category_id, featured_image_url,
	featured_image_caption, featured_image_position, pinned, author_id, created_at, updated_at`

// EntryFilter narrows and pages an entry listing. CategoryID and Search are
// optional; Limit and Offset are expected to be pre-clamped by the caller.
type EntryFilter struct {
	CategoryID *string
	Search     string
	Limit      int
	Offset     int
}

// EntryRepository handles database operations for codex entries.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// List returns one page of entries matching the filter plus the total match
// count. Pinned entries sort first, then title ascending. The search term
// matches title, excerpt, or body case-insensitively.
func (r *EntryRepository) List(ctx context.Context, filter EntryFilter) ([]*Entry, int, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Search != "" {
		// LOWER(...) LIKE keeps the match case-insensitive on every backend.
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(COALESCE(excerpt, '')) LIKE ? OR LOWER(body) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM codex_entries" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count entries: %w", err)
	}

	var entries []*Entry
	listQuery := "SELECT " + entryColumns + " FROM codex_entries" + clause +
		" ORDER BY pinned DESC, title ASC LIMIT ? OFFSET ?"
	listArgs := append(args, filter.Limit, filter.Offset)
	if err := r.db.SelectContext(ctx, &entries, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, total, nil
}

// GetBySlug retrieves a single entry by its exact slug. Not found is not an error.
func (r *EntryRepository) GetBySlug(ctx context.Context, slug string) (*Entry, error) {
	var entry Entry
	query := "SELECT " + entryColumns + " FROM codex_entries WHERE slug = ?"
	if err := r.db.GetContext(ctx, &entry, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry by slug: %w", err)
	}
	return &entry, nil
}

// GetByID retrieves a single entry by its ID. Not found is not an error.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*Entry, error) {
	var entry Entry
	query := "SELECT " + entryColumns + " FROM codex_entries WHERE id = ?"
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry by id: %w", err)
	}
	return &entry, nil
}

// GetByIDs retrieves the entries for the given ids in one query. Missing ids
// are silently absent from the result.
func (r *EntryRepository) GetByIDs(ctx context.Context, ids []string) ([]*Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+entryColumns+" FROM codex_entries WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build entries-by-ids query: %w", err)
	}
	var entries []*Entry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get entries by ids: %w", err)
	}
	return entries, nil
}

// GetAll retrieves all entries ordered by title, for the export snapshot.
func (r *EntryRepository) GetAll(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	query := "SELECT " + entryColumns + " FROM codex_entries ORDER BY title"
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to get all entries: %w", err)
	}
	return entries, nil
}

// Create inserts a new entry.
func (r *EntryRepository) Create(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO codex_entries (id, slug, title, excerpt, body, category_id,
			featured_image_url, featured_image_caption, featured_image_position,
			pinned, author_id, created_at, updated_at)
		VALUES (:id, :slug, :title, :excerpt, :body, :category_id,
			:featured_image_url, :featured_image_caption, :featured_image_position,
			:pinned, :author_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// Update rewrites an existing entry row.
func (r *EntryRepository) Update(ctx context.Context, entry *Entry) error {
	query := `UPDATE codex_entries
		SET slug = :slug, title = :title, excerpt = :excerpt, body = :body,
			category_id = :category_id, featured_image_url = :featured_image_url,
			featured_image_caption = :featured_image_caption,
			featured_image_position = :featured_image_position,
			pinned = :pinned, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no entry found to update with id %s", entry.ID)
	}
	return nil
}

// Delete removes an entry. Its outbound links and images go with it via
// foreign keys; edges pointing at it from other entries are left dangling.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM codex_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no entry found to delete with id %s", id)
	}
	return nil
}
