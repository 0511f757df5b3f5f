// Package purchase implements the purchase transaction coordinator: the one
// operation in the backend with a genuine concurrency hazard.
//
// A purchase decrements a product's stock and creates an order record as one
// indivisible unit. The product row is read under an exclusive row lock held
// by the enclosing store transaction, so concurrent purchases for the same
// product serialize on the lock and each one observes the stock left behind
// by the previous committed transaction. Stock can never go negative and an
// order is never created against insufficient inventory.
package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/user"
)

// Sentinel errors for purchase validation.
var (
	// ErrInvalidQuantity rejects non-positive quantities. Checked before any
	// transaction begins, so no lock is ever taken for invalid input.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")

	// ErrLockTimeout means the product row lock could not be acquired within
	// the configured wait. No side effects occurred; safe to retry.
	ErrLockTimeout = errors.New("timed out waiting for product lock")
)

// ProductNotFoundError indicates the requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// ProductUnavailableError indicates the product exists but is deactivated.
// Not retryable without administrative action.
type ProductUnavailableError struct {
	ProductID int64
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %d is not available for purchase", e.ProductID)
}

// UserNotFoundError indicates the purchasing user does not exist or is
// deactivated.
type UserNotFoundError struct {
	UserID int64
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %d not found or inactive", e.UserID)
}

// InsufficientStockError indicates the requested quantity exceeds the stock
// observed at lock time. Purchases are all-or-nothing; the caller may retry
// with a smaller quantity.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// PersistenceError wraps a store failure. The transaction was rolled back in
// full before this error was returned, so a retry starts from clean state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("purchase persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store opens purchase transactions. All reads and writes of a single
// Purchase call happen inside one Tx.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single purchase transaction against the record store.
//
// GetProductForUpdate acquires an exclusive lock on the product row for the
// duration of the transaction; it returns product.ErrNotFound when no row
// matches and ErrLockTimeout when the lock wait is aborted. Writes become
// visible to other transactions only after Commit. Rollback after Commit is
// a no-op, which permits the deferred-rollback pattern.
type Tx interface {
	GetProductForUpdate(ctx context.Context, productID int64) (*product.Product, error)
	GetUser(ctx context.Context, userID int64) (*user.User, error)
	UpdateProductStock(ctx context.Context, productID int64, stock int, updatedAt time.Time) error
	InsertOrder(ctx context.Context, o *order.Order) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DefaultLockTimeout bounds the wait for the product row lock when the
// coordinator is constructed without an explicit timeout.
const DefaultLockTimeout = 5 * time.Second

// Coordinator executes purchase transactions. It performs no internal
// parallelism; concurrency exists only because many callers may invoke
// Purchase simultaneously.
type Coordinator struct {
	store       Store
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLockTimeout bounds the wait for the product row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.lockTimeout = d }
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a purchase Coordinator over the given store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Purchase atomically decrements the product's stock and creates a CONFIRMED
// order for the user. On any error the transaction is rolled back in full:
// either both writes are visible or neither is.
//
// Requests for the same product serialize on the row lock in whatever order
// the store grants it; requests for different products never block each
// other.
func (c *Coordinator) Purchase(ctx context.Context, productID, userID int64, quantity int) (*order.Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}
	// Rollback is a no-op once the transaction commits.
	defer tx.Rollback(context.WithoutCancel(ctx))

	// Locked read. This is what prevents the lost-update race where two
	// concurrent purchases both observe stock=1 and both decrement.
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	p, err := tx.GetProductForUpdate(lockCtx, productID)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			return nil, &ProductNotFoundError{ProductID: productID}
		case errors.Is(err, ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
			return nil, ErrLockTimeout
		default:
			return nil, &PersistenceError{Op: "locked read", Err: err}
		}
	}

	if !p.Active {
		return nil, &ProductUnavailableError{ProductID: productID}
	}

	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, &UserNotFoundError{UserID: userID}
		}
		return nil, &PersistenceError{Op: "user lookup", Err: err}
	}
	if !u.Active {
		return nil, &UserNotFoundError{UserID: userID}
	}

	if quantity > p.StockQuantity {
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.StockQuantity,
		}
	}

	// Exact decimal arithmetic: integer quantity times a scale-2 price never
	// needs rounding.
	total := p.Price.Mul(decimal.NewFromInt(int64(quantity)))
	now := c.now().UTC()

	if err := tx.UpdateProductStock(ctx, productID, p.StockQuantity-quantity, now); err != nil {
		return nil, &PersistenceError{Op: "stock update", Err: err}
	}

	o := &order.Order{
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: total,
		Status:     order.StatusConfirmed,
		CreatedAt:  now,
	}
	id, err := tx.InsertOrder(ctx, o)
	if err != nil {
		return nil, &PersistenceError{Op: "order insert", Err: err}
	}
	o.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceError{Op: "commit", Err: err}
	}
	return o, nil
}
