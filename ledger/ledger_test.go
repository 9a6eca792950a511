package ledger

import (
	"testing"
	"time"

	"deposit-ledger/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newAccount(balance string) *model.Account {
	return &model.Account{
		AccountNumber: "ACC100",
		ClientID:      "client-1",
		Currency:      "RUB",
		Balance:       decimal.RequireFromString(balance),
	}
}

func TestCredit(t *testing.T) {
	l := New(func() time.Time { return fixedNow })

	t.Run("increases balance and stamps update time", func(t *testing.T) {
		// Arrange
		acc := newAccount("400.00")

		// Act
		err := l.Credit(acc, decimal.RequireFromString("636.00"))

		// Assert
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1036").Equal(acc.Balance), "got %s", acc.Balance)
		assert.Equal(t, fixedNow, acc.UpdatedAt)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		acc := newAccount("10")

		assert.ErrorIs(t, l.Credit(acc, decimal.Zero), ErrInvalidAmount)
		assert.ErrorIs(t, l.Credit(acc, decimal.NewFromInt(-1)), ErrInvalidAmount)
		assert.True(t, decimal.NewFromInt(10).Equal(acc.Balance))
		assert.True(t, acc.UpdatedAt.IsZero())
	})
}

func TestDebit(t *testing.T) {
	l := New(func() time.Time { return fixedNow })

	t.Run("decreases balance", func(t *testing.T) {
		acc := newAccount("1000.00")

		err := l.Debit(acc, decimal.RequireFromString("600.00"))

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("400").Equal(acc.Balance))
		assert.Equal(t, fixedNow, acc.UpdatedAt)
	})

	t.Run("exact balance leaves zero", func(t *testing.T) {
		acc := newAccount("25.50")

		require.NoError(t, l.Debit(acc, decimal.RequireFromString("25.50")))

		assert.True(t, acc.Balance.IsZero())
	})

	t.Run("insufficient funds leaves account untouched", func(t *testing.T) {
		acc := newAccount("400.00")

		err := l.Debit(acc, decimal.RequireFromString("1500.00"))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Contains(t, err.Error(), "ACC100")
		assert.True(t, decimal.RequireFromString("400").Equal(acc.Balance))
		assert.True(t, acc.UpdatedAt.IsZero())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		acc := newAccount("10")

		assert.ErrorIs(t, l.Debit(acc, decimal.Zero), ErrInvalidAmount)
		assert.ErrorIs(t, l.Debit(acc, decimal.NewFromInt(-5)), ErrInvalidAmount)
	})
}

func TestNewDefaultsClock(t *testing.T) {
	l := New(nil)
	acc := newAccount("0")

	require.NoError(t, l.Credit(acc, decimal.NewFromInt(1)))

	assert.WithinDuration(t, time.Now(), acc.UpdatedAt, time.Minute)
}

func TestRecord(t *testing.T) {
	// Arrange
	l := New(func() time.Time { return fixedNow })
	acc := newAccount("1000.00")
	require.NoError(t, l.Debit(acc, decimal.RequireFromString("600.00")))
	depositID := int64(9)

	// Act
	entry := Record(*acc, model.EntryDepositOpened, decimal.RequireFromString("-600.00"), &depositID)

	// Assert
	assert.Equal(t, "ACC100", entry.AccountNumber)
	assert.Equal(t, model.EntryDepositOpened, entry.Kind)
	assert.Equal(t, "-600.00", entry.Amount.StringFixed(2))
	assert.Equal(t, "400.00", entry.BalanceAfter.StringFixed(2))
	assert.Equal(t, &depositID, entry.DepositID)
	assert.Equal(t, fixedNow, entry.CreatedAt)
	assert.Zero(t, entry.ID)
}
