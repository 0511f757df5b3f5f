package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelier/storefront/internal/domain/order"
)

type purchaseRequest struct {
	ProductID int64 `json:"productId"`
	UserID    int64 `json:"userId"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	ProductID  int64  `json:"productId"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"totalPrice"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
	}
}

// placePurchase runs the purchase transaction and returns the created order.
func (h *Handler) placePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID <= 0 || req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "productId and userId are required")
		return
	}

	o, err := h.purchases.Purchase(r.Context(), req.ProductID, req.UserID, req.Quantity)
	if err != nil {
		respondPurchaseError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// listUserOrders returns the user's orders, newest first.
func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing orders failed")
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// decimalFromString parses a price field, reporting a uniform error shape.
func decimalFromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse decimal")
	}
	return d, nil
}
