// Package handler exposes the domain over a thin JSON HTTP surface. Routes
// delegate to repositories and the purchase coordinator; the only logic here
// is request decoding, validation, and error-to-status mapping.
package handler

import (
	"net/http"

	"github.com/avelier/storefront/internal/domain/address"
	"github.com/avelier/storefront/internal/domain/category"
	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/internal/domain/user"
)

// Handler serves the storefront API.
type Handler struct {
	products   product.Repository
	categories category.Repository
	users      user.Repository
	addresses  address.Repository
	orders     order.Repository
	purchases  *purchase.Coordinator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	categories category.Repository,
	users user.Repository,
	addresses address.Repository,
	orders order.Repository,
	purchases *purchase.Coordinator,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		users:      users,
		addresses:  addresses,
		orders:     orders,
		purchases:  purchases,
	}
}

// Register mounts all API routes on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.createProduct)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("POST /api/categories", h.createCategory)

	mux.HandleFunc("POST /api/users", h.createUser)
	mux.HandleFunc("GET /api/users/{id}", h.getUser)
	mux.HandleFunc("GET /api/users/{id}/orders", h.listUserOrders)
	mux.HandleFunc("GET /api/users/{id}/addresses", h.listUserAddresses)
	mux.HandleFunc("POST /api/users/{id}/addresses", h.createUserAddress)

	mux.HandleFunc("POST /api/purchase", h.placePurchase)
}
