// Package handler exposes the ledger services over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deposit-ledger/model"
	"deposit-ledger/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// AccountService is the account API the handlers depend on.
type AccountService interface {
	CreateAccount(ctx context.Context, clientID, currency string) (model.Account, error)
	GetAccount(ctx context.Context, accountNumber string) (model.Account, error)
	GetAccountByClient(ctx context.Context, clientID string) (model.Account, error)
	FundAccount(ctx context.Context, accountNumber string, amount decimal.Decimal) (model.Account, error)
	ListEntries(ctx context.Context, accountNumber string) ([]model.Entry, error)
}

// DepositService is the deposit API the handlers depend on.
type DepositService interface {
	CreateDeposit(ctx context.Context, req model.CreateDepositRequest) (model.Deposit, error)
	CloseDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error)
	MatureDeposit(ctx context.Context, depositID int64) (model.Deposit, error)
	GetDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error)
	ListDepositsByClient(ctx context.Context, clientID string) ([]model.Deposit, error)
	ListDepositsByAccount(ctx context.Context, accountNumber string) ([]model.Deposit, error)
	ListDueDeposits(ctx context.Context, asOf time.Time) ([]model.Deposit, error)
}

// CatalogService is the deposit type API the handlers depend on.
type CatalogService interface {
	CreateDepositType(ctx context.Context, req model.DepositTypeRequest) (model.DepositType, error)
	UpdateDepositType(ctx context.Context, id int64, req model.DepositTypeRequest) (model.DepositType, error)
	ActivateDepositType(ctx context.Context, id int64) error
	DeactivateDepositType(ctx context.Context, id int64) error
	GetActiveDepositType(ctx context.Context, id int64) (model.DepositType, error)
	GetDepositType(ctx context.Context, id int64) (model.DepositType, error)
	ListActiveDepositTypes(ctx context.Context) ([]model.DepositType, error)
	ListDepositTypes(ctx context.Context) ([]model.DepositType, error)
}

// statusClientClosedRequest is the nginx convention for a caller that hung up before the reply.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error writing JSON response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps a service error onto a status code. Internal failures are logged and their
// details are not returned to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrAlreadyClosed),
		errors.Is(err, service.ErrNotMatured),
		errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidAccount),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrProductUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStoreUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	case errors.Is(err, context.Canceled):
		loggerFrom(r.Context()).Info("request canceled by client")
		writeMessage(w, statusClientClosedRequest, "Request canceled")
		return
	default:
		loggerFrom(r.Context()).Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// Identity is the caller as asserted by the gateway in front of the service.
type Identity struct {
	ClientID string
	Roles    []string
}

const (
	headerClientID = "X-Client-ID"
	headerRoles    = "X-Roles"

	roleAdmin = "ADMIN"
)

// IsAdmin reports whether the caller holds the ADMIN role.
func (id Identity) IsAdmin() bool {
	for _, role := range id.Roles {
		if strings.EqualFold(role, roleAdmin) {
			return true
		}
	}
	return false
}

// canAccess reports whether the caller may see data belonging to clientID.
func (id Identity) canAccess(clientID string) bool {
	return id.IsAdmin() || id.ClientID == clientID
}

func identityFromHeaders(h http.Header) (Identity, bool) {
	id := Identity{ClientID: strings.TrimSpace(h.Get(headerClientID))}
	for _, role := range strings.Split(h.Get(headerRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			id.Roles = append(id.Roles, role)
		}
	}
	return id, id.ClientID != ""
}

type ctxKey int

const (
	identityKey ctxKey = iota
	loggerKey
)

func identityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
