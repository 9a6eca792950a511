// service/errors.go

package service

import (
	"context"
	"errors"
	"fmt"

	"deposit-ledger/ledger"
	"deposit-ledger/storage"
)

// Domain errors returned by the services. They are recoverable by the caller; the HTTP layer
// maps each one onto a status code with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrDepositNotFound     = fmt.Errorf("deposit %w", ErrNotFound)
	ErrDepositTypeNotFound = fmt.Errorf("deposit type %w", ErrNotFound)

	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrInvalidAmount     = ledger.ErrInvalidAmount

	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidProduct     = errors.New("invalid deposit type")
	ErrProductUnavailable = errors.New("deposit type unavailable")
	ErrAlreadyClosed      = errors.New("deposit already closed")
	ErrNotMatured         = errors.New("deposit has not reached its end date")

	// ErrConflict is returned when a concurrent write still wins after the one internal retry.
	ErrConflict         = errors.New("concurrent update, try again")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// notFound turns a storage miss into the given domain error and passes anything else through.
func notFound(err, domainErr error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, domainErr)...)
	}
	return err
}

// mapStoreError converts transport and contention failures into domain errors. A caller that
// went away is not a store failure, so context.Canceled passes through.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// Outcome classifies err into a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidAccount), errors.Is(err, ErrInvalidProduct):
		return "invalid"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrAlreadyClosed):
		return "already_closed"
	case errors.Is(err, ErrNotMatured):
		return "not_matured"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "error"
}
