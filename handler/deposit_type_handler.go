package handler

import (
	"context"
	"net/http"

	"deposit-ledger/model"
)

// DepositTypeHandler holds dependencies for the deposit type catalog handlers.
type DepositTypeHandler struct {
	catalog CatalogService
}

// NewDepositTypeHandler creates a new DepositTypeHandler.
func NewDepositTypeHandler(catalog CatalogService) *DepositTypeHandler {
	return &DepositTypeHandler{catalog: catalog}
}

// ListActiveHandler lists the products open for new deposits.
//
// Method: GET
// Path: /api/deposit-types/active
// Success: 200 OK
func (h *DepositTypeHandler) ListActiveHandler(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.ListActiveDepositTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// ListAllHandler lists every product, inactive ones included. Admin only.
//
// Method: GET
// Path: /api/deposit-types
// Success: 200 OK
func (h *DepositTypeHandler) ListAllHandler(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.ListDepositTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// GetHandler returns one product. Anonymous and client callers only see active products;
// an admin caller sees inactive ones too.
//
// Method: GET
// Path: /api/deposit-types/{id}
// Success: 200 OK
// Error: 404 Not Found (for unknown and, unless admin, inactive products alike)
func (h *DepositTypeHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit type ID format")
		return
	}

	get := h.catalog.GetActiveDepositType
	if caller, ok := identityFromHeaders(r.Header); ok && caller.IsAdmin() {
		get = h.catalog.GetDepositType
	}
	dt, err := get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

// CreateHandler adds a product. Admin only.
//
// Method: POST
// Path: /api/deposit-types
// Success: 201 Created
// Error: 400 Bad Request (for invalid JSON)
// Error: 422 Unprocessable Entity (for invalid fields or a taken name)
func (h *DepositTypeHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req model.DepositTypeRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dt, err := h.catalog.CreateDepositType(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}

// UpdateHandler replaces a product's fields. Admin only.
//
// Method: PUT
// Path: /api/deposit-types/{id}
// Success: 200 OK
// Error: 400 Bad Request (for invalid JSON)
// Error: 404 Not Found
// Error: 422 Unprocessable Entity (for invalid fields or a taken name)
func (h *DepositTypeHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit type ID format")
		return
	}
	var req model.DepositTypeRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dt, err := h.catalog.UpdateDepositType(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

// ActivateHandler and DeactivateHandler toggle availability. Both are idempotent and admin only.
//
// Method: POST
// Path: /api/deposit-types/{id}/activate, /api/deposit-types/{id}/deactivate
// Success: 204 No Content
// Error: 404 Not Found
func (h *DepositTypeHandler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.catalog.ActivateDepositType)
}

func (h *DepositTypeHandler) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.catalog.DeactivateDepositType)
}

func (h *DepositTypeHandler) setActive(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit type ID format")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
