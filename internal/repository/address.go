package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelier/storefront/internal/domain/address"
)

const (
	listAddressesByUserSQL = `SELECT id, user_id, address_type, street_address, city, state, postal_code, country, is_default, created_at
		FROM addresses WHERE user_id = $1 ORDER BY id`

	createAddressSQL = `INSERT INTO addresses (user_id, address_type, street_address, city, state, postal_code, country, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByUser returns all addresses owned by the user, ordered by ID.
func (r *AddressRepository) ListByUser(ctx context.Context, userID int64) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// Create persists a new address and returns its assigned identifier.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createAddressSQL,
		a.UserID, a.Type, a.StreetAddress, a.City, a.State, a.PostalCode, a.Country, a.Default, a.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating address for user %d: %w", a.UserID, err)
	}
	return id, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.StreetAddress, &a.City,
		&a.State, &a.PostalCode, &a.Country, &a.Default, &a.CreatedAt,
	)
	return a, err
}
