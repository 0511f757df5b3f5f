// Package category defines the product category entity.
package category

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/pkg/validate"
)

// ErrNotFound is returned when a requested category does not exist.
var ErrNotFound = errors.New("category not found")

// Category groups products. Categories form an optional tree via ParentID.
type Category struct {
	ID          int64
	Name        string
	Description string
	ParentID    *int64
	Active      bool
	CreatedAt   time.Time
}

// Validate checks field constraints and returns every violation found.
func (c *Category) Validate() validate.Violations {
	var vs validate.Violations
	vs.NotBlank("name", c.Name)
	vs.Length("name", c.Name, 3, 100)
	vs.MaxLength("description", c.Description, 500)
	return vs
}

// Repository defines persistence operations for categories.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, c *Category) (int64, error)
	EnsureByName(ctx context.Context, name string) (int64, error)
}
