package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/avelier/storefront/internal/domain/address"
	"github.com/avelier/storefront/internal/domain/user"
)

type userRequest struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"createdAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		PhoneNumber: u.PhoneNumber,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role := user.Role(req.Role)
	if role == "" {
		role = user.RoleCustomer
	}
	now := time.Now().UTC()
	u := &user.User{
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		PhoneNumber:  req.PhoneNumber,
		Active:       true,
		CreatedAt:    now,
		LastLoginAt:  now,
	}
	if vs := u.Validate(); len(vs) > 0 {
		respondViolations(w, vs)
		return
	}

	id, err := h.users.Create(r.Context(), u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "creating user failed")
		return
	}
	u.ID = id
	respondJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "getting user failed")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

type addressRequest struct {
	Type          string `json:"type"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	Default       bool   `json:"default,omitempty"`
}

type addressResponse struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"userId"`
	Type          string `json:"type"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	Default       bool   `json:"default"`
}

func toAddressResponse(a *address.Address) addressResponse {
	return addressResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		Type:          string(a.Type),
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		Default:       a.Default,
	}
}

func (h *Handler) listUserAddresses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	addresses, err := h.addresses.ListByUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing addresses failed")
		return
	}

	out := make([]addressResponse, len(addresses))
	for i := range addresses {
		out[i] = toAddressResponse(&addresses[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) createUserAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	addrType := address.Type(req.Type)
	if addrType != address.TypeShipping && addrType != address.TypeBilling {
		respondError(w, http.StatusBadRequest, "type must be SHIPPING or BILLING")
		return
	}

	a := &address.Address{
		UserID:        id,
		Type:          addrType,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		Default:       req.Default,
		CreatedAt:     time.Now().UTC(),
	}
	if vs := a.Validate(); len(vs) > 0 {
		respondViolations(w, vs)
		return
	}

	// The address must belong to an existing user.
	if _, err := h.users.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "getting user failed")
		return
	}

	addrID, err := h.addresses.Create(r.Context(), a)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "creating address failed")
		return
	}
	a.ID = addrID
	respondJSON(w, http.StatusCreated, toAddressResponse(a))
}
