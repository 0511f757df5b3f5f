// Package memory provides an in-memory implementation of the purchase
// transaction store. It is used by unit tests and local development; the
// locking semantics mirror the PostgreSQL implementation: an exclusive
// per-product row lock held until commit or rollback, with staged writes
// that become visible only on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/internal/domain/user"
)

// productRow pairs the product record with its row lock. The lock channel
// has capacity 1: a send acquires, a receive releases. Waiting on a select
// with ctx.Done keeps lock acquisition abortable.
type productRow struct {
	lock chan struct{}
	p    product.Product
}

// Store is an in-memory record store satisfying purchase.Store.
type Store struct {
	mu          sync.Mutex
	products    map[int64]*productRow
	users       map[int64]user.User
	orders      map[int64]order.Order
	nextOrderID int64
}

var _ purchase.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products: make(map[int64]*productRow),
		users:    make(map[int64]user.User),
		orders:   make(map[int64]order.Order),
	}
}

// SeedProduct inserts or replaces a product row.
func (s *Store) SeedProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &productRow{
		lock: make(chan struct{}, 1),
		p:    p,
	}
}

// SeedUser inserts or replaces a user row.
func (s *Store) SeedUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// Product returns a snapshot of the committed product row.
func (s *Store) Product(id int64) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.products[id]
	if !ok {
		return product.Product{}, false
	}
	return row.p, true
}

// Orders returns a snapshot of all committed orders.
func (s *Store) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Begin opens a transaction. Locks are acquired lazily by
// GetProductForUpdate and released on Commit or Rollback.
func (s *Store) Begin(_ context.Context) (purchase.Tx, error) {
	return &tx{store: s}, nil
}

// stagedStock records a pending stock write for a locked row.
type stagedStock struct {
	stock     int
	updatedAt time.Time
}

type tx struct {
	store *Store

	locked map[int64]*productRow
	writes map[int64]stagedStock
	orders []order.Order
	done   bool
}

var _ purchase.Tx = (*tx)(nil)

// GetProductForUpdate acquires the row lock, blocking until it is granted or
// ctx is done. A ctx abort while waiting surfaces as purchase.ErrLockTimeout
// and leaves nothing held.
func (t *tx) GetProductForUpdate(ctx context.Context, productID int64) (*product.Product, error) {
	t.store.mu.Lock()
	row, ok := t.store.products[productID]
	t.store.mu.Unlock()
	if !ok {
		return nil, product.ErrNotFound
	}

	if _, held := t.locked[productID]; !held {
		select {
		case row.lock <- struct{}{}:
			if t.locked == nil {
				t.locked = make(map[int64]*productRow)
			}
			t.locked[productID] = row
		case <-ctx.Done():
			return nil, purchase.ErrLockTimeout
		}
	}

	t.store.mu.Lock()
	p := row.p
	t.store.mu.Unlock()
	return &p, nil
}

func (t *tx) GetUser(_ context.Context, userID int64) (*user.User, error) {
	t.store.mu.Lock()
	u, ok := t.store.users[userID]
	t.store.mu.Unlock()
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// UpdateProductStock stages a stock write. The row lock must already be held
// by this transaction.
func (t *tx) UpdateProductStock(_ context.Context, productID int64, stock int, updatedAt time.Time) error {
	if _, held := t.locked[productID]; !held {
		return errors.Errorf("product %d is not locked by this transaction", productID)
	}
	if t.writes == nil {
		t.writes = make(map[int64]stagedStock)
	}
	t.writes[productID] = stagedStock{stock: stock, updatedAt: updatedAt}
	return nil
}

// InsertOrder stages an order row and returns its assigned identifier. The
// row materializes only on commit.
func (t *tx) InsertOrder(_ context.Context, o *order.Order) (int64, error) {
	t.store.mu.Lock()
	t.store.nextOrderID++
	id := t.store.nextOrderID
	t.store.mu.Unlock()

	staged := *o
	staged.ID = id
	t.orders = append(t.orders, staged)
	return id, nil
}

// Commit applies staged writes atomically and releases all row locks.
func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true

	t.store.mu.Lock()
	for id, w := range t.writes {
		row := t.store.products[id]
		row.p.StockQuantity = w.stock
		row.p.UpdatedAt = w.updatedAt
	}
	for _, o := range t.orders {
		t.store.orders[o.ID] = o
	}
	t.store.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards staged writes and releases all row locks. Calling it
// after Commit is a no-op.
func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.writes = nil
	t.orders = nil
	t.release()
	return nil
}

func (t *tx) release() {
	for _, row := range t.locked {
		<-row.lock
	}
	t.locked = nil
}
