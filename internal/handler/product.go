package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/internal/domain/product"
)

type productRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stockQuantity"`
	SKU           string `json:"sku,omitempty"`
	CategoryID    int64  `json:"categoryId"`
	Active        *bool  `json:"active,omitempty"`
}

type productResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stockQuantity"`
	SKU           string `json:"sku,omitempty"`
	CategoryID    int64  `json:"categoryId"`
	Active        bool   `json:"active"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.StringFixed(2),
		StockQuantity: p.StockQuantity,
		SKU:           p.SKU,
		CategoryID:    p.CategoryID,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing products failed")
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "getting product failed")
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}

	price, err := decimalFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid price")
		return
	}

	now := time.Now().UTC()
	p := &product.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: req.StockQuantity,
		SKU:           req.SKU,
		CategoryID:    req.CategoryID,
		Active:        req.Active == nil || *req.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Validation runs before any persistence work and reports every failed
	// constraint at once.
	if vs := p.Validate(); len(vs) > 0 {
		respondViolations(w, vs)
		return
	}

	id, err := h.products.Create(r.Context(), p)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "creating product failed")
		return
	}
	p.ID = id
	respondJSON(w, http.StatusCreated, toProductResponse(p))
}
