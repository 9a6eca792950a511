// Package model defines the data structures shared by the ledger, the store and the HTTP layer.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a client-owned balance in one currency.
// Balance is only changed through the ledger package and never drops below zero.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	ClientID      string          `json:"clientId"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DepositType is a product definition deposits are opened under.
// InterestRate is the annual rate as a fraction: 0.06 is 6% per year.
type DepositType struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int             `json:"termMonths"`
	Description  string          `json:"description"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// DepositStatus is the lifecycle state of a deposit.
type DepositStatus string

const (
	DepositActive  DepositStatus = "ACTIVE"
	DepositClosed  DepositStatus = "CLOSED"
	DepositMatured DepositStatus = "MATURED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositClosed || s == DepositMatured
}

// Deposit is a term placement of funds taken from an account.
//
// The account and the product are referenced by key. DepositTypeName, InterestRate and
// TermMonths are copied from the product when the deposit is opened, so later product edits do
// not change what an open deposit earns.
type Deposit struct {
	ID              int64           `json:"id"`
	AccountNumber   string          `json:"accountNumber"`
	DepositTypeID   int64           `json:"depositTypeId"`
	DepositTypeName string          `json:"depositTypeName"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	TermMonths      int             `json:"termMonths"`
	Amount          decimal.Decimal `json:"amount"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Status          DepositStatus   `json:"status"`
	EarnedInterest  decimal.Decimal `json:"earnedInterest"`
	ClosedAt        *time.Time      `json:"closedAt,omitempty"`
	Version         int64           `json:"-"`
}

// CreateAccountRequest defines the expected JSON body for opening an account.
type CreateAccountRequest struct {
	ClientID string `json:"clientId"`
	Currency string `json:"currency"`
}

// FundAccountRequest defines the expected JSON body for crediting an account.
type FundAccountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateDepositRequest defines the expected JSON body for opening a deposit.
type CreateDepositRequest struct {
	AccountNumber string          `json:"accountNumber"`
	DepositTypeID int64           `json:"depositTypeId"`
	Amount        decimal.Decimal `json:"amount"`
}

// DepositTypeRequest is the full set of mutable product fields, used for create and update.
// IsActive is a pointer so that an omitted flag can default to active.
type DepositTypeRequest struct {
	Name         string          `json:"name"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int             `json:"termMonths"`
	Description  string          `json:"description"`
	IsActive     *bool           `json:"isActive,omitempty"`
}

// AddMonths returns t moved by n calendar months. When the day does not exist in the target
// month it is clamped to that month's last day, so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
