// Package order defines the order record created by the purchase
// coordinator.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order. Purchases create orders directly
// in StatusConfirmed; cancellation and refund lifecycles live elsewhere.
type Status string

const StatusConfirmed Status = "CONFIRMED"

// Order records a completed purchase. Rows are write-once: the coordinator
// creates them inside the purchase transaction and nothing mutates them
// afterwards.
//
// TotalPrice is unit price times quantity, computed with exact decimal
// arithmetic at purchase time and frozen. Later price changes never alter
// existing orders.
type Order struct {
	ID         int64
	UserID     int64
	ProductID  int64
	Quantity   int
	TotalPrice decimal.Decimal
	Status     Status
	CreatedAt  time.Time
}

// Repository defines read operations for orders. Creation happens only
// through the purchase transaction store.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
}
