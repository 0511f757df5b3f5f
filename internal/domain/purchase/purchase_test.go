package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/user"
)

// --- Mock implementations ---

type mockStore struct {
	tx       *mockTx
	beginErr error
	begun    int
}

func (m *mockStore) Begin(_ context.Context) (Tx, error) {
	m.begun++
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

type mockTx struct {
	product *product.Product
	user    *user.User

	lockErr   error
	userErr   error
	updateErr error
	insertErr error
	commitErr error

	updatedStock  *int
	insertedOrder *order.Order
	committed     bool
	rolledBack    bool
}

func (m *mockTx) GetProductForUpdate(_ context.Context, _ int64) (*product.Product, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	if m.product == nil {
		return nil, product.ErrNotFound
	}
	return m.product, nil
}

func (m *mockTx) GetUser(_ context.Context, _ int64) (*user.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	if m.user == nil {
		return nil, user.ErrNotFound
	}
	return m.user, nil
}

func (m *mockTx) UpdateProductStock(_ context.Context, _ int64, stock int, _ time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedStock = &stock
	return nil
}

func (m *mockTx) InsertOrder(_ context.Context, o *order.Order) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.insertedOrder = o
	return 42, nil
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

// --- Helpers ---

func activeProduct(stock int, price string) *product.Product {
	return &product.Product{
		ID:            1,
		Name:          "Gaming Laptop",
		Description:   "High performance gaming laptop",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		SKU:           "LAPTOP-001",
		Active:        true,
	}
}

func activeUser() *user.User {
	return &user.User{ID: 7, Email: "ada@example.com", Active: true}
}

func newCoordinator(tx *mockTx) (*Coordinator, *mockStore) {
	st := &mockStore{tx: tx}
	return NewCoordinator(st), st
}

// --- Tests ---

func TestPurchase_InvalidQuantity(t *testing.T) {
	for _, qty := range []int{0, -1} {
		c, st := newCoordinator(&mockTx{})

		_, err := c.Purchase(context.Background(), 1, 7, qty)

		require.ErrorIs(t, err, ErrInvalidQuantity)
		// Rejected before any transaction or lock.
		assert.Zero(t, st.begun)
	}
}

func TestPurchase_ProductNotFound(t *testing.T) {
	tx := &mockTx{user: activeUser()}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 99, 7, 1)

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, int64(99), pnf.ProductID)
	assert.True(t, tx.rolledBack)
}

func TestPurchase_ProductUnavailable(t *testing.T) {
	p := activeProduct(5, "10.00")
	p.Active = false
	tx := &mockTx{product: p, user: activeUser()}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	var pu *ProductUnavailableError
	require.ErrorAs(t, err, &pu)
	assert.True(t, tx.rolledBack)
	assert.Nil(t, tx.updatedStock)
}

func TestPurchase_UserNotFound(t *testing.T) {
	tx := &mockTx{product: activeProduct(5, "10.00")}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 404, 1)

	var unf *UserNotFoundError
	require.ErrorAs(t, err, &unf)
	assert.Equal(t, int64(404), unf.UserID)
	assert.True(t, tx.rolledBack)
}

func TestPurchase_InactiveUser(t *testing.T) {
	u := activeUser()
	u.Active = false
	tx := &mockTx{product: activeProduct(5, "10.00"), user: u}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	var unf *UserNotFoundError
	require.ErrorAs(t, err, &unf)
	assert.Nil(t, tx.updatedStock)
}

func TestPurchase_InsufficientStock(t *testing.T) {
	tx := &mockTx{product: activeProduct(2, "10.00"), user: activeUser()}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 3)

	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, 3, ins.Requested)
	assert.Equal(t, 2, ins.Available)
	assert.True(t, tx.rolledBack)
	assert.Nil(t, tx.updatedStock)
	assert.Nil(t, tx.insertedOrder)
}

func TestPurchase_Success(t *testing.T) {
	tx := &mockTx{product: activeProduct(5, "10.00"), user: activeUser()}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &mockStore{tx: tx}
	c := NewCoordinator(st, WithClock(func() time.Time { return at }))

	o, err := c.Purchase(context.Background(), 1, 7, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)
	assert.Equal(t, int64(7), o.UserID)
	assert.Equal(t, int64(1), o.ProductID)
	assert.Equal(t, 3, o.Quantity)
	assert.True(t, decimal.RequireFromString("30.00").Equal(o.TotalPrice))
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, at, o.CreatedAt)

	require.NotNil(t, tx.updatedStock)
	assert.Equal(t, 2, *tx.updatedStock)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestPurchase_ExactStockSellsOut(t *testing.T) {
	tx := &mockTx{product: activeProduct(3, "19.99"), user: activeUser()}
	c, _ := newCoordinator(tx)

	o, err := c.Purchase(context.Background(), 1, 7, 3)

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("59.97").Equal(o.TotalPrice))
	require.NotNil(t, tx.updatedStock)
	assert.Equal(t, 0, *tx.updatedStock)
}

func TestPurchase_LockTimeout(t *testing.T) {
	tx := &mockTx{lockErr: ErrLockTimeout}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	require.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, tx.rolledBack)
}

func TestPurchase_LockWaitDeadlineMapsToTimeout(t *testing.T) {
	tx := &mockTx{lockErr: context.DeadlineExceeded}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestPurchase_BeginError(t *testing.T) {
	st := &mockStore{beginErr: errors.New("pool exhausted")}
	c := NewCoordinator(st)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "begin", pe.Op)
}

func TestPurchase_InsertFailureRollsBack(t *testing.T) {
	tx := &mockTx{
		product:   activeProduct(5, "10.00"),
		user:      activeUser(),
		insertErr: errors.New("disk full"),
	}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "order insert", pe.Op)
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestPurchase_CommitFailureRollsBack(t *testing.T) {
	tx := &mockTx{
		product:   activeProduct(5, "10.00"),
		user:      activeUser(),
		commitErr: errors.New("connection reset"),
	}
	c, _ := newCoordinator(tx)

	_, err := c.Purchase(context.Background(), 1, 7, 1)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "commit", pe.Op)
	assert.True(t, tx.rolledBack)
}
