// Package user defines the customer account entity.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/pkg/validate"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role distinguishes administrative accounts from customers.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// User represents a registered account. Orders and addresses reference users
// by ID; the entity carries no live object graph.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	PhoneNumber  string
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// Validate checks field constraints and returns every violation found.
func (u *User) Validate() validate.Violations {
	var vs validate.Violations
	vs.NotBlank("email", u.Email)
	if u.Email != "" && !isWellFormedEmail(u.Email) {
		vs.Add("email", "must be a well-formed email address")
	}
	vs.NotBlank("passwordHash", u.PasswordHash)
	vs.NotBlank("firstName", u.FirstName)
	vs.Length("firstName", u.FirstName, 3, 100)
	vs.NotBlank("lastName", u.LastName)
	vs.Length("lastName", u.LastName, 3, 100)
	vs.MaxLength("phoneNumber", u.PhoneNumber, 20)
	return vs
}

// isWellFormedEmail applies the same loose shape check the original
// validation layer used: one "@" with a non-empty local part and a domain
// containing a dot.
func isWellFormedEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if strings.ContainsAny(s, " \t") {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// Repository defines persistence operations for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) (int64, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
