package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/internal/domain/user"
)

const (
	// lockNotAvailable is the SQLSTATE PostgreSQL reports when lock_timeout
	// expires while waiting on a row lock.
	lockNotAvailable = "55P03"

	getProductForUpdateSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	getUserForPurchaseSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	updateStockSQL = `UPDATE products SET stock_quantity = $2, updated_at = $3 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (user_id, product_id, quantity, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
)

var _ purchase.Store = (*PurchaseStore)(nil)

// PurchaseStore implements the purchase transaction contract on PostgreSQL.
// The product row is locked with SELECT ... FOR UPDATE inside an explicit
// transaction; lock_timeout bounds the wait so an abandoned request never
// parks on the lock queue forever.
type PurchaseStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPurchaseStore returns a PurchaseStore over the given pool. lockTimeout
// is applied per transaction via SET LOCAL lock_timeout.
func NewPurchaseStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PurchaseStore {
	return &PurchaseStore{pool: pool, lockTimeout: lockTimeout}
}

// Begin opens a transaction with the row-lock wait bound configured.
func (s *PurchaseStore) Begin(ctx context.Context) (purchase.Tx, error) {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning purchase transaction: %w", err)
	}

	// SET LOCAL scopes the setting to this transaction. lock_timeout does
	// not accept bind parameters, so the duration is formatted in.
	if _, err := pgtx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		_ = pgtx.Rollback(ctx)
		return nil, fmt.Errorf("setting lock timeout: %w", err)
	}

	return &purchaseTx{tx: pgtx}, nil
}

type purchaseTx struct {
	tx pgx.Tx
}

var _ purchase.Tx = (*purchaseTx)(nil)

// GetProductForUpdate reads the product row under an exclusive lock held
// until the transaction ends. Lock-wait expiry maps to
// purchase.ErrLockTimeout.
func (t *purchaseTx) GetProductForUpdate(ctx context.Context, productID int64) (*product.Product, error) {
	rows, err := t.tx.Query(ctx, getProductForUpdateSQL, productID)
	if err != nil {
		return nil, mapLockErr(productID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, mapLockErr(productID, err)
	}
	return &p, nil
}

func (t *purchaseTx) GetUser(ctx context.Context, userID int64) (*user.User, error) {
	rows, err := t.tx.Query(ctx, getUserForPurchaseSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", userID, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", userID, err)
	}
	return &u, nil
}

func (t *purchaseTx) UpdateProductStock(ctx context.Context, productID int64, stock int, updatedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, updateStockSQL, productID, stock, updatedAt)
	if err != nil {
		return fmt.Errorf("updating stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (t *purchaseTx) InsertOrder(ctx context.Context, o *order.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.ProductID, o.Quantity, o.TotalPrice, o.Status, o.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return id, nil
}

func (t *purchaseTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *purchaseTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// mapLockErr translates lock_timeout expiry (SQLSTATE 55P03) and a cancelled
// lock wait into purchase.ErrLockTimeout.
func mapLockErr(productID int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
		return purchase.ErrLockTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return purchase.ErrLockTimeout
	}
	return fmt.Errorf("locked read of product %d: %w", productID, err)
}
