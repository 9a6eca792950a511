package handler

import (
	"net/http"

	"deposit-ledger/model"

	"github.com/gorilla/mux"
)

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateAccountHandler opens an account. It expects a JSON body with "currency" and an optional
// "clientId", which defaults to the caller. Only admins may open accounts for someone else.
//
// Method: POST
// Path: /api/accounts
// Success: 201 Created
// Error: 400 Bad Request (for invalid JSON)
// Error: 403 Forbidden (for another client's id)
// Error: 422 Unprocessable Entity (for a blank client id or bad currency)
func (h *AccountHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller := identityFrom(r.Context())
	if req.ClientID == "" {
		req.ClientID = caller.ClientID
	}
	if !caller.canAccess(req.ClientID) {
		writeMessage(w, http.StatusForbidden, "Cannot open an account for another client")
		return
	}

	acc, err := h.accounts.CreateAccount(r.Context(), req.ClientID, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// GetAccountHandler returns an account by number. Accounts of other clients are reported as
// not found.
//
// Method: GET
// Path: /api/accounts/{accountNumber}
// Success: 200 OK
// Error: 404 Not Found
func (h *AccountHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.GetAccount(r.Context(), mux.Vars(r)["accountNumber"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !identityFrom(r.Context()).canAccess(acc.ClientID) {
		writeMessage(w, http.StatusNotFound, "Account not found")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// GetClientAccountHandler returns the client's first account.
//
// Method: GET
// Path: /api/accounts/client/{clientId}
// Success: 200 OK
// Error: 403 Forbidden (for another client's id)
// Error: 404 Not Found
func (h *AccountHandler) GetClientAccountHandler(w http.ResponseWriter, r *http.Request) {
	clientID := mux.Vars(r)["clientId"]
	if !identityFrom(r.Context()).canAccess(clientID) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	acc, err := h.accounts.GetAccountByClient(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// FundAccountHandler credits money arriving from outside the ledger. Admin only.
//
// Method: POST
// Path: /api/accounts/{accountNumber}/fund
// Success: 200 OK
// Error: 400 Bad Request (for invalid JSON)
// Error: 404 Not Found
// Error: 422 Unprocessable Entity (for a non-positive amount)
func (h *AccountHandler) FundAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req model.FundAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.accounts.FundAccount(r.Context(), mux.Vars(r)["accountNumber"], req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// ListEntriesHandler returns the account's journal, oldest first. Accounts of other clients are
// reported as not found.
//
// Method: GET
// Path: /api/accounts/{accountNumber}/entries
// Success: 200 OK
// Error: 404 Not Found
func (h *AccountHandler) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["accountNumber"]
	acc, err := h.accounts.GetAccount(r.Context(), accountNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !identityFrom(r.Context()).canAccess(acc.ClientID) {
		writeMessage(w, http.StatusNotFound, "Account not found")
		return
	}

	entries, err := h.accounts.ListEntries(r.Context(), accountNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
