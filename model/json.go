package model

import "encoding/json"

// Money fields go on the wire as strings with exactly MoneyScale fractional digits, so 600 is
// "600.00" and clients never see a trailing-zero-stripped amount. Rates keep their own scale.
//
// Each type marshals through an alias without methods; the outer string fields shadow the
// alias's decimal fields of the same JSON name.

func (a Account) MarshalJSON() ([]byte, error) {
	type alias Account
	return json.Marshal(struct {
		alias
		Balance string `json:"balance"`
	}{alias(a), a.Balance.StringFixed(MoneyScale)})
}

func (d Deposit) MarshalJSON() ([]byte, error) {
	type alias Deposit
	return json.Marshal(struct {
		alias
		Amount         string `json:"amount"`
		EarnedInterest string `json:"earnedInterest"`
	}{alias(d), d.Amount.StringFixed(MoneyScale), d.EarnedInterest.StringFixed(MoneyScale)})
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		Amount       string `json:"amount"`
		BalanceAfter string `json:"balanceAfter"`
	}{alias(e), e.Amount.StringFixed(MoneyScale), e.BalanceAfter.StringFixed(MoneyScale)})
}
