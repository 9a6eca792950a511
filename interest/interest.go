// Package interest computes simple, non-compounding deposit interest.
//
// Interest is evaluated fresh at the moment it is needed and never persisted incrementally:
//
//	days      = whole days between start and asOf (0 if asOf is before start)
//	dailyRate = round_half_up(annualRate / 365, 10)
//	interest  = round_half_up(principal * dailyRate * days, 2)
package interest

import (
	"time"

	"deposit-ledger/model"

	"github.com/shopspring/decimal"
)

// DaysInYear is the fixed day-count basis for the daily rate.
const DaysInYear = 365

var daysInYear = decimal.NewFromInt(DaysInYear)

// WholeDays returns the number of complete 24 hour periods between start and asOf.
func WholeDays(start, asOf time.Time) int64 {
	if !asOf.After(start) {
		return 0
	}
	return int64(asOf.Sub(start) / (24 * time.Hour))
}

// DailyRate converts an annual rate fraction into a daily one at RateScale digits.
func DailyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.DivRound(daysInYear, model.RateScale)
}

// Calculate returns the interest the deposit has earned as of asOf, using the rate captured on
// the deposit when it was opened.
func Calculate(d model.Deposit, asOf time.Time) decimal.Decimal {
	days := WholeDays(d.StartDate, asOf)
	if days == 0 {
		return decimal.Zero
	}
	return model.RoundMoney(d.Amount.Mul(DailyRate(d.InterestRate)).Mul(decimal.NewFromInt(days)))
}

// MaturityAmount is the principal plus the interest earned as of asOf.
func MaturityAmount(d model.Deposit, asOf time.Time) decimal.Decimal {
	return d.Amount.Add(Calculate(d, asOf))
}
