package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avelier/storefront/internal/domain/purchase"
	"github.com/avelier/storefront/pkg/validate"
)

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	Code       int              `json:"code"`
	Message    string           `json:"message"`
	Violations []fieldViolation `json:"violations,omitempty"`
}

type fieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondViolations reports a failed validation pass as 422 with the full
// violation list.
func respondViolations(w http.ResponseWriter, vs validate.Violations) {
	fields := make([]fieldViolation, len(vs))
	for i, v := range vs {
		fields[i] = fieldViolation{Field: v.Field, Message: v.Message}
	}
	respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Code:       http.StatusUnprocessableEntity,
		Message:    "validation failed",
		Violations: fields,
	})
}

// respondPurchaseError maps coordinator errors onto HTTP statuses. Every
// branch corresponds to a fully rolled back transaction, so retry semantics
// follow directly from the status.
func respondPurchaseError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound     *purchase.ProductNotFoundError
		userNotFound *purchase.UserNotFoundError
		unavailable  *purchase.ProductUnavailableError
		insufficient *purchase.InsufficientStockError
		persistence  *purchase.PersistenceError
	)
	switch {
	case errors.Is(err, purchase.ErrInvalidQuantity):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &notFound), errors.As(err, &userNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unavailable), errors.As(err, &insufficient):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, purchase.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &persistence):
		zctx.From(r.Context()).Error("purchase failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "purchase could not be completed")
	default:
		zctx.From(r.Context()).Error("purchase failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}
