package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"deposit-ledger/model"
	"deposit-ledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccountHandler(t *testing.T) {
	t.Run("success - defaults to the caller", func(t *testing.T) {
		accounts := &MockAccountService{
			CreateAccountFunc: func(ctx context.Context, clientID, currency string) (model.Account, error) {
				assert.Equal(t, "client-1", clientID)
				assert.Equal(t, "RUB", currency)
				return model.Account{AccountNumber: "ACC1", ClientID: clientID, Currency: currency, Balance: decimal.Zero}, nil
			},
		}
		router := newTestRouter(mocks{accounts: accounts})

		rr := serve(router, http.MethodPost, "/api/accounts", `{"currency": "RUB"}`, "client-1", "")

		assert.Equal(t, http.StatusCreated, rr.Code)
		var acc model.Account
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &acc))
		assert.Equal(t, "ACC1", acc.AccountNumber)
		assert.NotEmpty(t, rr.Header().Get(headerRequestID))
	})

	t.Run("another client's id", func(t *testing.T) {
		router := newTestRouter(mocks{})

		rr := serve(router, http.MethodPost, "/api/accounts", `{"clientId": "client-2", "currency": "RUB"}`, "client-1", "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin may open for anyone", func(t *testing.T) {
		accounts := &MockAccountService{
			CreateAccountFunc: func(ctx context.Context, clientID, currency string) (model.Account, error) {
				return model.Account{ClientID: clientID}, nil
			},
		}
		router := newTestRouter(mocks{accounts: accounts})

		rr := serve(router, http.MethodPost, "/api/accounts", `{"clientId": "client-2", "currency": "RUB"}`, "ops", "ADMIN")

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("invalid currency", func(t *testing.T) {
		accounts := &MockAccountService{
			CreateAccountFunc: func(ctx context.Context, clientID, currency string) (model.Account, error) {
				return model.Account{}, service.ErrInvalidAccount
			},
		}
		router := newTestRouter(mocks{accounts: accounts})

		rr := serve(router, http.MethodPost, "/api/accounts", `{"currency": "RU"}`, "client-1", "")

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		router := newTestRouter(mocks{})
		rr := serve(router, http.MethodPost, "/api/accounts", `{"currency": "RUB"`, "client-1", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing identity", func(t *testing.T) {
		router := newTestRouter(mocks{})
		rr := serve(router, http.MethodPost, "/api/accounts", `{"currency": "RUB"}`, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetAccountHandler(t *testing.T) {
	accounts := &MockAccountService{
		GetAccountFunc: func(ctx context.Context, accountNumber string) (model.Account, error) {
			if accountNumber != "ACC1" {
				return model.Account{}, service.ErrAccountNotFound
			}
			return model.Account{AccountNumber: "ACC1", ClientID: "client-1", Balance: decimal.RequireFromString("100.50")}, nil
		},
	}
	router := newTestRouter(mocks{accounts: accounts})

	t.Run("success", func(t *testing.T) {
		rr := serve(router, http.MethodGet, "/api/accounts/ACC1", "", "client-1", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		var acc model.Account
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &acc))
		assert.True(t, decimal.RequireFromString("100.50").Equal(acc.Balance))
	})

	t.Run("not found", func(t *testing.T) {
		rr := serve(router, http.MethodGet, "/api/accounts/ACC2", "", "client-1", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("foreign account looks missing", func(t *testing.T) {
		rr := serve(router, http.MethodGet, "/api/accounts/ACC1", "", "client-2", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestGetClientAccountHandler(t *testing.T) {
	accounts := &MockAccountService{
		GetAccountByClientFunc: func(ctx context.Context, clientID string) (model.Account, error) {
			return model.Account{AccountNumber: "ACC1", ClientID: clientID}, nil
		},
	}
	router := newTestRouter(mocks{accounts: accounts})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/accounts/client/client-1", "", "client-1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/accounts/client/client-1", "", "client-2", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/accounts/client/client-1", "", "ops", "USER, ADMIN").Code)
}

func TestFundAccountHandler(t *testing.T) {
	accounts := &MockAccountService{
		FundAccountFunc: func(ctx context.Context, accountNumber string, amount decimal.Decimal) (model.Account, error) {
			if !amount.IsPositive() {
				return model.Account{}, service.ErrInvalidAmount
			}
			return model.Account{AccountNumber: accountNumber, Balance: amount}, nil
		},
	}
	router := newTestRouter(mocks{accounts: accounts})

	t.Run("admin credits", func(t *testing.T) {
		rr := serve(router, http.MethodPost, "/api/accounts/ACC1/fund", `{"amount": "250.00"}`, "ops", "ADMIN")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("client is forbidden", func(t *testing.T) {
		rr := serve(router, http.MethodPost, "/api/accounts/ACC1/fund", `{"amount": "250.00"}`, "client-1", "USER")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		rr := serve(router, http.MethodPost, "/api/accounts/ACC1/fund", `{"amount": "-1"}`, "ops", "ADMIN")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestListEntriesHandler(t *testing.T) {
	depositID := int64(4)
	accounts := ownedAccounts()
	accounts.ListEntriesFunc = func(ctx context.Context, accountNumber string) ([]model.Entry, error) {
		return []model.Entry{
			{ID: 1, AccountNumber: accountNumber, Kind: model.EntryFunded, Amount: decimal.NewFromInt(1000), BalanceAfter: decimal.NewFromInt(1000)},
			{ID: 2, AccountNumber: accountNumber, Kind: model.EntryDepositOpened, Amount: decimal.NewFromInt(-600), BalanceAfter: decimal.NewFromInt(400), DepositID: &depositID},
		}, nil
	}
	router := newTestRouter(mocks{accounts: accounts})

	t.Run("owner sees the journal", func(t *testing.T) {
		rr := serve(router, http.MethodGet, "/api/accounts/ACC1/entries", "", "client-1", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var body []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Len(t, body, 2)
		assert.Equal(t, "FUNDED", body[0]["kind"])
		assert.Equal(t, "1000.00", body[0]["amount"])
		assert.NotContains(t, body[0], "depositId")
		assert.Equal(t, "-600.00", body[1]["amount"])
		assert.Equal(t, "400.00", body[1]["balanceAfter"])
		assert.Equal(t, float64(4), body[1]["depositId"])
	})

	tests := []struct {
		name     string
		target   string
		clientID string
		roles    string
		want     int
	}{
		{"foreign account", "/api/accounts/ACC2/entries", "client-1", "", http.StatusNotFound},
		{"unknown account", "/api/accounts/ACC404/entries", "client-1", "", http.StatusNotFound},
		{"admin sees any account", "/api/accounts/ACC2/entries", "ops", "ADMIN", http.StatusOK},
		{"no identity", "/api/accounts/ACC1/entries", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(router, http.MethodGet, tt.target, "", tt.clientID, tt.roles)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}
