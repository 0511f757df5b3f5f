// Package address defines shipping and billing addresses attached to users.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/pkg/validate"
)

// ErrNotFound is returned when a requested address does not exist.
var ErrNotFound = errors.New("address not found")

// Type distinguishes shipping from billing addresses.
type Type string

const (
	TypeShipping Type = "SHIPPING"
	TypeBilling  Type = "BILLING"
)

// Address is a postal address owned by a user.
type Address struct {
	ID            int64
	UserID        int64
	Type          Type
	StreetAddress string
	City          string
	State         string
	PostalCode    string
	Country       string
	Default       bool
	CreatedAt     time.Time
}

// Validate checks field constraints and returns every violation found.
func (a *Address) Validate() validate.Violations {
	var vs validate.Violations
	vs.NotBlank("streetAddress", a.StreetAddress)
	vs.Length("streetAddress", a.StreetAddress, 3, 200)
	vs.NotBlank("city", a.City)
	vs.Length("city", a.City, 3, 200)
	vs.NotBlank("state", a.State)
	vs.Length("state", a.State, 3, 200)
	vs.NotBlank("postalCode", a.PostalCode)
	vs.Length("postalCode", a.PostalCode, 3, 10)
	vs.NotBlank("country", a.Country)
	vs.Length("country", a.Country, 3, 100)
	return vs
}

// Repository defines persistence operations for addresses.
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]Address, error)
	Create(ctx context.Context, a *Address) (int64, error)
}
