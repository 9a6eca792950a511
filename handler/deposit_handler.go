package handler

import (
	"errors"
	"net/http"
	"time"

	"deposit-ledger/model"
	"deposit-ledger/service"

	"github.com/gorilla/mux"
)

// DepositHandler holds dependencies for deposit-related handlers.
type DepositHandler struct {
	deposits DepositService
	accounts AccountService
}

// NewDepositHandler creates a new DepositHandler. The account service is used to check that the
// caller owns the account a request names.
func NewDepositHandler(deposits DepositService, accounts AccountService) *DepositHandler {
	return &DepositHandler{deposits: deposits, accounts: accounts}
}

// ownsAccount reports whether the caller may act on the account. A missing account is left for
// the service to report.
func (h *DepositHandler) ownsAccount(w http.ResponseWriter, r *http.Request, accountNumber string) bool {
	caller := identityFrom(r.Context())
	if caller.IsAdmin() {
		return true
	}
	acc, err := h.accounts.GetAccount(r.Context(), accountNumber)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return true
	case err != nil:
		writeError(w, r, err)
		return false
	case acc.ClientID != caller.ClientID:
		writeMessage(w, http.StatusForbidden, "Account belongs to another client")
		return false
	}
	return true
}

// CreateDepositHandler opens a deposit, debiting the amount from the account.
//
// Method: POST
// Path: /api/deposits
// Success: 201 Created
// Error: 400 Bad Request (for invalid JSON)
// Error: 403 Forbidden (for another client's account)
// Error: 404 Not Found (for an unknown account)
// Error: 409 Conflict (for insufficient funds)
// Error: 422 Unprocessable Entity (for a bad amount or an unavailable deposit type)
func (h *DepositHandler) CreateDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.ownsAccount(w, r, req.AccountNumber) {
		return
	}

	d, err := h.deposits.CreateDeposit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDepositHandler returns one of the caller's deposits.
//
// Method: GET
// Path: /api/deposits/{depositId}
// Success: 200 OK
// Error: 404 Not Found (for an unknown or foreign deposit)
func (h *DepositHandler) GetDepositHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "depositId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit ID format")
		return
	}

	d, err := h.deposits.GetDeposit(r.Context(), id, identityFrom(r.Context()).ClientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CloseDepositHandler closes the caller's deposit early and pays it out.
//
// Method: POST
// Path: /api/deposits/{depositId}/close
// Success: 200 OK
// Error: 404 Not Found (for an unknown or foreign deposit)
// Error: 409 Conflict (for a deposit that is no longer active)
func (h *DepositHandler) CloseDepositHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "depositId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit ID format")
		return
	}

	d, err := h.deposits.CloseDeposit(r.Context(), id, identityFrom(r.Context()).ClientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// MatureDepositHandler settles a deposit whose term has ended. Admin only; meant for the
// scheduler that polls the due list.
//
// Method: POST
// Path: /api/deposits/{depositId}/mature
// Success: 200 OK
// Error: 404 Not Found
// Error: 409 Conflict (for a deposit that is not due or no longer active)
func (h *DepositHandler) MatureDepositHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "depositId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid deposit ID format")
		return
	}

	d, err := h.deposits.MatureDeposit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListClientDepositsHandler lists every deposit of a client.
//
// Method: GET
// Path: /api/deposits/client/{clientId}
// Success: 200 OK
// Error: 403 Forbidden (for another client's id)
func (h *DepositHandler) ListClientDepositsHandler(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientId"]
	if !identityFrom(r.Context()).canAccess(clientID) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	deposits, err := h.deposits.ListDepositsByClient(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

// ListAccountDepositsHandler lists the deposits opened against one account.
//
// Method: GET
// Path: /api/deposits/account/{accountNumber}
// Success: 200 OK
// Error: 403 Forbidden (for another client's account)
func (h *DepositHandler) ListAccountDepositsHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["accountNumber"]
	if !h.ownsAccount(w, r, accountNumber) {
		return
	}

	deposits, err := h.deposits.ListDepositsByAccount(r.Context(), accountNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

// ListDueDepositsHandler lists active deposits whose term has ended by asOf (RFC 3339, default
// now). Admin only.
//
// Method: GET
// Path: /api/deposits/due?asOf=
// Success: 200 OK
// Error: 400 Bad Request (for a malformed asOf)
func (h *DepositHandler) ListDueDepositsHandler(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("asOf"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "asOf must be an RFC 3339 timestamp")
			return
		}
		asOf = t
	}

	deposits, err := h.deposits.ListDueDeposits(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}
