package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles database operations for codex categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll retrieves all categories ordered by sort order, then name.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	query := `SELECT id, slug, name, description, sort_order, created_at, updated_at
		FROM codex_categories ORDER BY sort_order, name`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to get all categories: %w", err)
	}
	return categories, nil
}

// GetByID finds a category by its ID. Not found is not an error.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*Category, error) {
	var category Category
	query := `SELECT id, slug, name, description, sort_order, created_at, updated_at
		FROM codex_categories WHERE id = ?`
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// GetBySlug finds a category by its slug. Not found is not an error.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	query := `SELECT id, slug, name, description, sort_order, created_at, updated_at
		FROM codex_categories WHERE slug = ?`
	if err := r.db.GetContext(ctx, &category, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return &category, nil
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *Category) error {
	query := `INSERT INTO codex_categories (id, slug, name, description, sort_order, created_at, updated_at)
		VALUES (:id, :slug, :name, :description, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Update rewrites an existing category row.
func (r *CategoryRepository) Update(ctx context.Context, category *Category) error {
	query := `UPDATE codex_categories
		SET slug = :slug, name = :name, description = :description,
			sort_order = :sort_order, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no category found to update with id %s", category.ID)
	}
	return nil
}

// Delete removes a category. Entries referencing it keep their category_id;
// readers must treat the dangling reference as "no category".
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM codex_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no category found to delete with id %s", id)
	}
	return nil
}
