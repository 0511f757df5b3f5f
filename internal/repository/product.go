package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelier/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, stock_quantity, COALESCE(sku, ''), category_id, active, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductBySKUSQL = `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	createProductSQL = `INSERT INTO products (name, description, price, stock_quantity, sku, category_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $8) RETURNING id`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock_quantity = $5, sku = NULLIF($6, ''), category_id = $7, active = $8, updated_at = $9
		WHERE id = $1`

	upsertProductBySKUSQL = `INSERT INTO products (name, description, price, stock_quantity, sku, category_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity, category_id = EXCLUDED.category_id,
			active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`

	setProductActiveSQL = `UPDATE products SET active = $2, updated_at = now() WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetBySKU returns a single product by its stock keeping unit.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductBySKUSQL, sku)
	if err != nil {
		return nil, fmt.Errorf("getting product by sku %q: %w", sku, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product by sku %q: %w", sku, err)
	}
	return &p, nil
}

// Create persists a new product and returns its assigned identifier.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Description, p.Price, p.StockQuantity, p.SKU, p.CategoryID, p.Active, p.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return id, nil
}

// Update persists all mutable fields of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.SKU, p.CategoryID, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// UpsertBySKU inserts the product or, when its SKU already exists, replaces
// the catalog fields. Used by bulk catalog imports.
func (r *ProductRepository) UpsertBySKU(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductBySKUSQL,
		p.Name, p.Description, p.Price, p.StockQuantity, p.SKU, p.CategoryID, p.Active, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.SKU, err)
	}
	return nil
}

// SetActive flips the purchasable flag without touching other fields.
func (r *ProductRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, setProductActiveSQL, id, active)
	if err != nil {
		return fmt.Errorf("setting product %d active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.SKU, &p.CategoryID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
