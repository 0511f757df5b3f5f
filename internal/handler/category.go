package handler

import (
	"net/http"
	"time"

	"github.com/avelier/storefront/internal/domain/category"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parentId,omitempty"`
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parentId,omitempty"`
	Active      bool   `json:"active"`
}

func toCategoryResponse(c *category.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		Active:      c.Active,
	}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing categories failed")
		return
	}

	out := make([]categoryResponse, len(categories))
	for i := range categories {
		out[i] = toCategoryResponse(&categories[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c := &category.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if vs := c.Validate(); len(vs) > 0 {
		respondViolations(w, vs)
		return
	}

	id, err := h.categories.Create(r.Context(), c)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "creating category failed")
		return
	}
	c.ID = id
	respondJSON(w, http.StatusCreated, toCategoryResponse(c))
}
