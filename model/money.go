package model

import "github.com/shopspring/decimal"

// Every monetary value and rate in this service is a decimal.Decimal.
//
// float64 cannot represent most decimal fractions exactly (0.1 + 0.2 != 0.3), and the error
// accumulates across credits, debits and interest accruals until balances drift. Balances, rates
// and interest are therefore fixed-point decimals and are only ever rounded at the points the
// interest rules name.

const (
	// MoneyScale is the number of fractional digits kept for balances, principals and interest.
	MoneyScale int32 = 2
	// RateScale is the number of fractional digits kept for the daily interest rate.
	RateScale int32 = 10
)

// RoundMoney rounds d half-up to MoneyScale digits.
// decimal rounds half away from zero, which is half-up for the non-negative amounts handled here.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// IsMoneyAmount reports whether d is strictly positive and carries no more than MoneyScale
// fractional digits.
func IsMoneyAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(RoundMoney(d))
}
