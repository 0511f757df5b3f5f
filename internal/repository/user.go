package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelier/storefront/internal/domain/user"
)

const (
	userColumns = `id, email, password_hash, first_name, last_name, role, phone_number, active, created_at, last_login_at`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	createUserSQL = `INSERT INTO users (email, password_hash, first_name, last_name, role, phone_number, active, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`

	touchLastLoginSQL = `UPDATE users SET last_login_at = $2 WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a single user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetByEmail returns a single user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// Create persists a new user and returns its assigned identifier.
func (r *UserRepository) Create(ctx context.Context, u *user.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.PhoneNumber, u.Active, u.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return id, nil
}

// TouchLastLogin stamps the last login time.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, touchLastLoginSQL, id, at)
	if err != nil {
		return fmt.Errorf("touching last login for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.PhoneNumber, &u.Active, &u.CreatedAt, &u.LastLoginAt,
	)
	return u, err
}
