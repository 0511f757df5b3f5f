package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelier/storefront/internal/domain/category"
)

const (
	categoryColumns = `id, name, description, parent_id, active, created_at`

	listCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY id`

	getCategoryByIDSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	createCategorySQL = `INSERT INTO categories (name, description, parent_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	ensureCategorySQL = `INSERT INTO categories (name, created_at) VALUES ($1, now())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by ID.
func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByID returns a single category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return &c, nil
}

// Create persists a new category and returns its assigned identifier.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createCategorySQL,
		c.Name, c.Description, c.ParentID, c.Active, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating category %q: %w", c.Name, err)
	}
	return id, nil
}

// EnsureByName returns the ID of the category with the given name, creating
// it if necessary. Used by catalog imports where files reference categories
// by name.
func (r *CategoryRepository) EnsureByName(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, ensureCategorySQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensuring category %q: %w", name, err)
	}
	return id, nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.Active, &c.CreatedAt)
	return c, err
}
