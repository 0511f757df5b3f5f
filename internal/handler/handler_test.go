package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelier/storefront/internal/domain/order"
	"github.com/avelier/storefront/internal/domain/product"
	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/internal/domain/user"
	"github.com/avelier/storefront/internal/storage/memory"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID    map[int64]*product.Product
	created *product.Product
	err     error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, m.err
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetBySKU(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) Create(_ context.Context, p *product.Product) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.created = p
	return 101, nil
}

func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return m.err }

func (m *mockProductRepo) UpsertBySKU(_ context.Context, _ *product.Product) error { return m.err }

func (m *mockProductRepo) SetActive(_ context.Context, _ int64, _ bool) error { return m.err }

// --- Helpers ---

func newPurchaseHandler(t *testing.T, stock int) (*Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedProduct(product.Product{
		ID:            1,
		Name:          "Gaming Laptop",
		Description:   "High performance gaming laptop",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		SKU:           "LAPTOP-001",
		Active:        true,
	})
	store.SeedUser(user.User{ID: 7, Email: "ada@example.com", Active: true})

	h := NewHandler(&mockProductRepo{}, nil, nil, nil, nil, purchase.NewCoordinator(store))
	return h, store
}

func doPurchase(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/purchase", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestPlacePurchase_Success(t *testing.T) {
	h, store := newPurchaseHandler(t, 5)

	rec := doPurchase(t, h, purchaseRequest{ProductID: 1, UserID: 7, Quantity: 3})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Quantity)
	assert.Equal(t, "30.00", resp.TotalPrice)
	assert.Equal(t, string(order.StatusConfirmed), resp.Status)

	p, _ := store.Product(1)
	assert.Equal(t, 2, p.StockQuantity)
}

func TestPlacePurchase_InsufficientStock(t *testing.T) {
	h, store := newPurchaseHandler(t, 2)

	rec := doPurchase(t, h, purchaseRequest{ProductID: 1, UserID: 7, Quantity: 3})

	assert.Equal(t, http.StatusConflict, rec.Code)
	p, _ := store.Product(1)
	assert.Equal(t, 2, p.StockQuantity, "stock must be unchanged after a rejected purchase")
}

func TestPlacePurchase_InvalidQuantity(t *testing.T) {
	h, _ := newPurchaseHandler(t, 5)

	rec := doPurchase(t, h, purchaseRequest{ProductID: 1, UserID: 7, Quantity: 0})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlacePurchase_ProductNotFound(t *testing.T) {
	h, _ := newPurchaseHandler(t, 5)

	rec := doPurchase(t, h, purchaseRequest{ProductID: 999, UserID: 7, Quantity: 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlacePurchase_MissingIdentifiers(t *testing.T) {
	h, _ := newPurchaseHandler(t, 5)

	rec := doPurchase(t, h, purchaseRequest{Quantity: 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct_ValidationViolations(t *testing.T) {
	repo := &mockProductRepo{}
	h := NewHandler(repo, nil, nil, nil, nil, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	body := `{"name":"AB","description":"ok desc","price":"0.00","stockQuantity":-1,"categoryId":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Violations)
	assert.Nil(t, repo.created, "invalid product must not reach the repository")
}

func TestGetProduct_NotFound(t *testing.T) {
	h := NewHandler(&mockProductRepo{byID: map[int64]*product.Product{}}, nil, nil, nil, nil, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/products/42", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
