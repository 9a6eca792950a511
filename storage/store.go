package storage

import (
	"context"
	"errors"
	"time"

	"deposit-ledger/model"
)

// Custom errors for the storage layer.
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("concurrent update conflict")
	ErrDuplicate   = errors.New("duplicate record")
	ErrUnavailable = errors.New("store unavailable")
)

// Repository is the record-level contract the services work against.
//
// Single-record finders return ErrNotFound when nothing matches. Inside a transaction the
// account and deposit finders lock the rows they return until commit. Save methods insert
// records with a zero ID and otherwise update them, failing with ErrConflict when the stored
// version no longer matches the one that was read.
type Repository interface {
	FindAccountByNumber(ctx context.Context, number string) (*model.Account, error)
	FindAccountByClientID(ctx context.Context, clientID string) (*model.Account, error)
	SaveAccount(ctx context.Context, acc model.Account) (model.Account, error)

	FindDepositTypeActive(ctx context.Context, id int64) (*model.DepositType, error)
	FindDepositTypeByID(ctx context.Context, id int64) (*model.DepositType, error)
	SaveDepositType(ctx context.Context, dt model.DepositType) (model.DepositType, error)
	ListDepositTypes(ctx context.Context, activeOnly bool) ([]model.DepositType, error)

	FindDepositByID(ctx context.Context, id int64) (*model.Deposit, error)
	FindDepositByIDAndClientID(ctx context.Context, id int64, clientID string) (*model.Deposit, error)
	FindDepositsByAccountNumber(ctx context.Context, number string) ([]model.Deposit, error)
	FindDepositsByClientID(ctx context.Context, clientID string) ([]model.Deposit, error)
	FindDepositsDue(ctx context.Context, asOf time.Time) ([]model.Deposit, error)
	SaveDeposit(ctx context.Context, d model.Deposit) (model.Deposit, error)

	// AppendEntry adds a journal line. Entries are never updated.
	AppendEntry(ctx context.Context, e model.Entry) (model.Entry, error)
	ListEntriesByAccount(ctx context.Context, number string) ([]model.Entry, error)
}

// Store is a Repository that can also run a group of operations as one atomic unit.
type Store interface {
	Repository

	// InTx runs fn inside a transaction. Everything fn saves through the Repository it receives
	// is committed together when fn returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
	Close()
}
