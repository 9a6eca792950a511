// Package ledger owns every change to an account balance.
//
// Ledger operations mutate the loaded account value only. Persisting the result, and doing so
// atomically with the matching deposit change, is the caller's job.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"deposit-ledger/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger applies credits and debits to accounts.
type Ledger struct {
	now func() time.Time
}

// New creates a Ledger that stamps UpdatedAt with now. A nil clock uses time.Now.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Credit increases the balance by amount. There is no upper bound.
func (l *Ledger) Credit(acc *model.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("credit %s: %w", acc.AccountNumber, ErrInvalidAmount)
	}
	acc.Balance = acc.Balance.Add(amount)
	acc.UpdatedAt = l.now().UTC()
	return nil
}

// Debit decreases the balance by amount, refusing to take it below zero.
func (l *Ledger) Debit(acc *model.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit %s: %w", acc.AccountNumber, ErrInvalidAmount)
	}
	if acc.Balance.LessThan(amount) {
		return fmt.Errorf("debit %s of %s with balance %s: %w",
			acc.AccountNumber, amount.StringFixed(model.MoneyScale), acc.Balance.StringFixed(model.MoneyScale), ErrInsufficientFunds)
	}
	acc.Balance = acc.Balance.Sub(amount)
	acc.UpdatedAt = l.now().UTC()
	return nil
}

// Record returns the journal entry for a movement already applied to acc. amount is signed:
// positive for a credit, negative for a debit.
func Record(acc model.Account, kind model.EntryKind, amount decimal.Decimal, depositID *int64) model.Entry {
	return model.Entry{
		AccountNumber: acc.AccountNumber,
		Kind:          kind,
		Amount:        amount,
		BalanceAfter:  acc.Balance,
		DepositID:     depositID,
		CreatedAt:     acc.UpdatedAt,
	}
}
