package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind names the movement an Entry records.
type EntryKind string

const (
	EntryFunded         EntryKind = "FUNDED"
	EntryDepositOpened  EntryKind = "DEPOSIT_OPENED"
	EntryDepositClosed  EntryKind = "DEPOSIT_CLOSED"
	EntryDepositMatured EntryKind = "DEPOSIT_MATURED"
)

// Entry is one line of an account's journal. Amount is signed: credits are positive and debits
// negative, so the entries of an account sum to its balance. Entries are append-only and are
// written in the same transaction as the balance change they describe.
type Entry struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	Kind          EntryKind       `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	DepositID     *int64          `json:"depositId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
