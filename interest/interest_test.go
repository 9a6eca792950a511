package interest

import (
	"testing"
	"time"

	"deposit-ledger/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func deposit(amount, rate string) model.Deposit {
	return model.Deposit{
		Amount:       decimal.RequireFromString(amount),
		InterestRate: decimal.RequireFromString(rate),
		StartDate:    start,
		EndDate:      model.AddMonths(start, 12),
		Status:       model.DepositActive,
	}
}

func TestWholeDays(t *testing.T) {
	tests := []struct {
		name string
		asOf time.Time
		want int64
	}{
		{"same instant", start, 0},
		{"before start", start.Add(-48 * time.Hour), 0},
		{"just under a day", start.Add(23*time.Hour + 59*time.Minute), 0},
		{"exactly one day", start.Add(24 * time.Hour), 1},
		{"truncates partial day", start.Add(36 * time.Hour), 1},
		{"one year", start.AddDate(0, 0, 365), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WholeDays(start, tt.asOf))
		})
	}
}

func TestDailyRate(t *testing.T) {
	assert.Equal(t, "0.0001643836", DailyRate(decimal.RequireFromString("0.06")).String())
	assert.Equal(t, "0.0002739726", DailyRate(decimal.RequireFromString("0.10")).String())
	assert.Equal(t, "0.0000027397", DailyRate(decimal.RequireFromString("0.001")).String())
}

func TestCalculate(t *testing.T) {
	t.Run("one year at six percent on 600", func(t *testing.T) {
		// Arrange
		d := deposit("600.00", "0.06")

		// Act
		got := Calculate(d, start.AddDate(0, 0, 365))

		// Assert
		assert.Equal(t, "36.00", got.StringFixed(2))
	})

	t.Run("partial period", func(t *testing.T) {
		d := deposit("10000.00", "0.12")

		// 0.12/365 = 0.0003287671, * 10000 * 30 = 98.63013
		got := Calculate(d, start.AddDate(0, 0, 30).Add(5*time.Hour))

		assert.Equal(t, "98.63", got.StringFixed(2))
	})

	t.Run("no interest before a full day", func(t *testing.T) {
		d := deposit("600.00", "0.06")

		assert.True(t, Calculate(d, start.Add(12*time.Hour)).IsZero())
		assert.True(t, Calculate(d, start.Add(-time.Hour)).IsZero())
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		d := deposit("1234.56", "0.075")
		asOf := start.AddDate(0, 0, 200)

		assert.True(t, Calculate(d, asOf).Equal(Calculate(d, asOf)))
	})

	t.Run("ignores earned interest already on the deposit", func(t *testing.T) {
		d := deposit("600.00", "0.06")
		d.EarnedInterest = decimal.NewFromInt(999)

		assert.Equal(t, "36.00", Calculate(d, start.AddDate(0, 0, 365)).StringFixed(2))
	})
}

func TestMaturityAmount(t *testing.T) {
	d := deposit("600.00", "0.06")

	got := MaturityAmount(d, start.AddDate(0, 0, 365))

	assert.Equal(t, "636.00", got.StringFixed(2))
}
