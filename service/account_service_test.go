package service

import (
	"context"
	"regexp"
	"testing"

	"deposit-ledger/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, storage.NewMemoryStore())

	t.Run("opens an empty account", func(t *testing.T) {
		acc, err := e.accounts.CreateAccount(ctx, " client-1 ", "rub")

		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^ACC[0-9A-F]{16}$`), acc.AccountNumber)
		assert.Equal(t, "client-1", acc.ClientID)
		assert.Equal(t, "RUB", acc.Currency)
		assert.True(t, acc.Balance.IsZero())
		assert.Equal(t, start, acc.CreatedAt)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, tc := range []struct{ clientID, currency string }{
			{"", "RUB"},
			{"   ", "RUB"},
			{"client-1", "RU"},
			{"client-1", "RUBL"},
			{"client-1", "R1B"},
		} {
			_, err := e.accounts.CreateAccount(ctx, tc.clientID, tc.currency)
			assert.ErrorIs(t, err, ErrInvalidAccount, "client %q currency %q", tc.clientID, tc.currency)
		}
	})

	t.Run("draws a new number on collision", func(t *testing.T) {
		taken, err := e.accounts.CreateAccount(ctx, "client-2", "USD")
		require.NoError(t, err)

		numbers := []string{taken.AccountNumber, "ACC0000000000000001"}
		e.accounts.newNumber = func() string {
			n := numbers[0]
			numbers = numbers[1:]
			return n
		}
		defer func() { e.accounts.newNumber = generateAccountNumber }()

		acc, err := e.accounts.CreateAccount(ctx, "client-3", "USD")

		require.NoError(t, err)
		assert.Equal(t, "ACC0000000000000001", acc.AccountNumber)
	})
}

func TestAccountService_Lookups(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, storage.NewMemoryStore())
	first := e.fundedAccount(t, "client-1", "10.00")
	e.fundedAccount(t, "client-1", "20.00")

	got, err := e.accounts.GetAccount(ctx, first.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	byClient, err := e.accounts.GetAccountByClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, first.AccountNumber, byClient.AccountNumber)

	_, err = e.accounts.GetAccount(ctx, "ACC404")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = e.accounts.GetAccountByClient(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountService_FundAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, storage.NewMemoryStore())
	acc := e.fundedAccount(t, "client-1", "100.00")

	tests := []struct {
		name    string
		number  string
		amount  string
		wantErr error
		want    string
	}{
		{"credit", acc.AccountNumber, "0.50", nil, "100.50"},
		{"zero", acc.AccountNumber, "0", ErrInvalidAmount, "100.50"},
		{"negative", acc.AccountNumber, "-1", ErrInvalidAmount, "100.50"},
		{"fractional cents", acc.AccountNumber, "1.001", ErrInvalidAmount, "100.50"},
		{"unknown account", "ACC404", "1.00", ErrAccountNotFound, "100.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.accounts.FundAccount(ctx, tt.number, decimal.RequireFromString(tt.amount))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, e.balance(t, acc.AccountNumber))
		})
	}
}
