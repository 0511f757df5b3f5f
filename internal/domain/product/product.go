// Package product defines the catalog product entity and its persistence
// contract.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelier/storefront/pkg/validate"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// minPrice is the lowest representable unit price.
var minPrice = decimal.RequireFromString("0.01")

// Product represents a catalog item available for purchase.
//
// StockQuantity is mutated only by the purchase coordinator (decrement) and
// restock paths, always inside a row lock. It never goes negative.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	SKU           string
	CategoryID    int64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks field constraints and returns every violation found.
func (p *Product) Validate() validate.Violations {
	var vs validate.Violations
	vs.NotBlank("name", p.Name)
	vs.Length("name", p.Name, 3, 200)
	vs.NotBlank("description", p.Description)
	vs.Length("description", p.Description, 3, 2000)
	if p.Price.LessThan(minPrice) {
		vs.Add("price", "must be at least %s", minPrice)
	}
	if p.StockQuantity < 0 {
		vs.Add("stockQuantity", "cannot be negative")
	}
	vs.MaxLength("sku", p.SKU, 50)
	return vs
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, p *Product) (int64, error)
	Update(ctx context.Context, p *Product) error
	UpsertBySKU(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}
