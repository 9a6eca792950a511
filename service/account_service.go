package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deposit-ledger/ledger"
	"deposit-ledger/model"
	"deposit-ledger/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService opens accounts and credits funds to them.
type AccountService struct {
	exec      *executor
	ledger    *ledger.Ledger
	newNumber func() string
}

// NewAccountService creates an AccountService.
func NewAccountService(store storage.Store, opts Options) *AccountService {
	exec := newExecutor(store, opts)
	return &AccountService{exec: exec, ledger: ledger.New(exec.now), newNumber: generateAccountNumber}
}

// generateAccountNumber returns "ACC" followed by 16 upper-case hex digits of a random UUID.
func generateAccountNumber() string {
	return "ACC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// CreateAccount opens an empty account for the client in the given currency.
func (s *AccountService) CreateAccount(ctx context.Context, clientID, currency string) (model.Account, error) {
	clientID = strings.TrimSpace(clientID)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	var created model.Account
	err := s.exec.run(ctx, "create_account", func(ctx context.Context) error {
		if clientID == "" {
			return fmt.Errorf("clientId is required: %w", ErrInvalidAccount)
		}
		if !isCurrencyCode(currency) {
			return fmt.Errorf("currency %q must be a 3-letter ISO code: %w", currency, ErrInvalidAccount)
		}

		now := s.exec.now()
		acc := model.Account{
			ClientID:  clientID,
			Currency:  currency,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// A generated number can collide with an existing one; draw again once.
		var err error
		for attempt := 0; attempt < 2; attempt++ {
			acc.AccountNumber = s.newNumber()
			created, err = s.exec.store.SaveAccount(ctx, acc)
			if !errors.Is(err, storage.ErrDuplicate) {
				break
			}
		}
		return err
	})
	if err != nil {
		return model.Account{}, err
	}

	s.exec.logger.Info("account created",
		"account_number", created.AccountNumber,
		"client_id", created.ClientID,
		"currency", created.Currency)
	return created, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

// GetAccount returns the account with the given number.
func (s *AccountService) GetAccount(ctx context.Context, accountNumber string) (model.Account, error) {
	return s.find(ctx, "get_account", func(ctx context.Context) (*model.Account, error) {
		acc, err := s.exec.store.FindAccountByNumber(ctx, accountNumber)
		return acc, notFound(err, ErrAccountNotFound, "account %s", accountNumber)
	})
}

// GetAccountByClient returns the client's first account.
func (s *AccountService) GetAccountByClient(ctx context.Context, clientID string) (model.Account, error) {
	return s.find(ctx, "get_account_by_client", func(ctx context.Context) (*model.Account, error) {
		acc, err := s.exec.store.FindAccountByClientID(ctx, clientID)
		return acc, notFound(err, ErrAccountNotFound, "client %s", clientID)
	})
}

func (s *AccountService) find(ctx context.Context, op string, fn func(ctx context.Context) (*model.Account, error)) (model.Account, error) {
	var acc *model.Account
	err := s.exec.run(ctx, op, func(ctx context.Context) error {
		var err error
		acc, err = fn(ctx)
		return err
	})
	if err != nil {
		return model.Account{}, err
	}
	return *acc, nil
}

// FundAccount credits amount to the account, the entry point for money arriving from outside
// the deposit flow.
func (s *AccountService) FundAccount(ctx context.Context, accountNumber string, amount decimal.Decimal) (model.Account, error) {
	var funded model.Account
	err := s.exec.run(ctx, "fund_account", func(ctx context.Context) error {
		if !model.IsMoneyAmount(amount) {
			return fmt.Errorf("fund amount %s: %w", amount, ErrInvalidAmount)
		}

		return s.exec.inTx(ctx, "fund_account", func(repo storage.Repository) error {
			acc, err := repo.FindAccountByNumber(ctx, accountNumber)
			if err != nil {
				return notFound(err, ErrAccountNotFound, "account %s", accountNumber)
			}
			if err := s.ledger.Credit(acc, amount); err != nil {
				return err
			}
			if funded, err = repo.SaveAccount(ctx, *acc); err != nil {
				return err
			}
			_, err = repo.AppendEntry(ctx, ledger.Record(funded, model.EntryFunded, amount, nil))
			return err
		})
	})
	if err != nil {
		return model.Account{}, err
	}

	s.exec.logger.Info("account funded",
		"account_number", funded.AccountNumber,
		"amount", amount.StringFixed(model.MoneyScale),
		"balance", funded.Balance.StringFixed(model.MoneyScale))
	return funded, nil
}

// ListEntries returns the account's journal, oldest first.
func (s *AccountService) ListEntries(ctx context.Context, accountNumber string) ([]model.Entry, error) {
	var entries []model.Entry
	err := s.exec.run(ctx, "list_entries", func(ctx context.Context) error {
		if _, err := s.exec.store.FindAccountByNumber(ctx, accountNumber); err != nil {
			return notFound(err, ErrAccountNotFound, "account %s", accountNumber)
		}
		var err error
		entries, err = s.exec.store.ListEntriesByAccount(ctx, accountNumber)
		return err
	})
	return entries, err
}
