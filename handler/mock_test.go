package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"deposit-ledger/model"

	"github.com/shopspring/decimal"
)

// MockAccountService provides a mock implementation of AccountService for testing.
type MockAccountService struct {
	CreateAccountFunc      func(ctx context.Context, clientID, currency string) (model.Account, error)
	GetAccountFunc         func(ctx context.Context, accountNumber string) (model.Account, error)
	GetAccountByClientFunc func(ctx context.Context, clientID string) (model.Account, error)
	FundAccountFunc        func(ctx context.Context, accountNumber string, amount decimal.Decimal) (model.Account, error)
	ListEntriesFunc        func(ctx context.Context, accountNumber string) ([]model.Entry, error)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, clientID, currency string) (model.Account, error) {
	return m.CreateAccountFunc(ctx, clientID, currency)
}

func (m *MockAccountService) GetAccount(ctx context.Context, accountNumber string) (model.Account, error) {
	return m.GetAccountFunc(ctx, accountNumber)
}

func (m *MockAccountService) GetAccountByClient(ctx context.Context, clientID string) (model.Account, error) {
	return m.GetAccountByClientFunc(ctx, clientID)
}

func (m *MockAccountService) FundAccount(ctx context.Context, accountNumber string, amount decimal.Decimal) (model.Account, error) {
	return m.FundAccountFunc(ctx, accountNumber, amount)
}

func (m *MockAccountService) ListEntries(ctx context.Context, accountNumber string) ([]model.Entry, error) {
	return m.ListEntriesFunc(ctx, accountNumber)
}

// MockDepositService provides a mock implementation of DepositService for testing.
type MockDepositService struct {
	CreateDepositFunc         func(ctx context.Context, req model.CreateDepositRequest) (model.Deposit, error)
	CloseDepositFunc          func(ctx context.Context, depositID int64, clientID string) (model.Deposit, error)
	MatureDepositFunc         func(ctx context.Context, depositID int64) (model.Deposit, error)
	GetDepositFunc            func(ctx context.Context, depositID int64, clientID string) (model.Deposit, error)
	ListDepositsByClientFunc  func(ctx context.Context, clientID string) ([]model.Deposit, error)
	ListDepositsByAccountFunc func(ctx context.Context, accountNumber string) ([]model.Deposit, error)
	ListDueDepositsFunc       func(ctx context.Context, asOf time.Time) ([]model.Deposit, error)
}

func (m *MockDepositService) CreateDeposit(ctx context.Context, req model.CreateDepositRequest) (model.Deposit, error) {
	return m.CreateDepositFunc(ctx, req)
}

func (m *MockDepositService) CloseDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error) {
	return m.CloseDepositFunc(ctx, depositID, clientID)
}

func (m *MockDepositService) MatureDeposit(ctx context.Context, depositID int64) (model.Deposit, error) {
	return m.MatureDepositFunc(ctx, depositID)
}

func (m *MockDepositService) GetDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error) {
	return m.GetDepositFunc(ctx, depositID, clientID)
}

func (m *MockDepositService) ListDepositsByClient(ctx context.Context, clientID string) ([]model.Deposit, error) {
	return m.ListDepositsByClientFunc(ctx, clientID)
}

func (m *MockDepositService) ListDepositsByAccount(ctx context.Context, accountNumber string) ([]model.Deposit, error) {
	return m.ListDepositsByAccountFunc(ctx, accountNumber)
}

func (m *MockDepositService) ListDueDeposits(ctx context.Context, asOf time.Time) ([]model.Deposit, error) {
	return m.ListDueDepositsFunc(ctx, asOf)
}

// MockCatalogService provides a mock implementation of CatalogService for testing.
type MockCatalogService struct {
	CreateDepositTypeFunc      func(ctx context.Context, req model.DepositTypeRequest) (model.DepositType, error)
	UpdateDepositTypeFunc      func(ctx context.Context, id int64, req model.DepositTypeRequest) (model.DepositType, error)
	ActivateDepositTypeFunc    func(ctx context.Context, id int64) error
	DeactivateDepositTypeFunc  func(ctx context.Context, id int64) error
	GetActiveDepositTypeFunc   func(ctx context.Context, id int64) (model.DepositType, error)
	GetDepositTypeFunc         func(ctx context.Context, id int64) (model.DepositType, error)
	ListActiveDepositTypesFunc func(ctx context.Context) ([]model.DepositType, error)
	ListDepositTypesFunc       func(ctx context.Context) ([]model.DepositType, error)
}

func (m *MockCatalogService) CreateDepositType(ctx context.Context, req model.DepositTypeRequest) (model.DepositType, error) {
	return m.CreateDepositTypeFunc(ctx, req)
}

func (m *MockCatalogService) UpdateDepositType(ctx context.Context, id int64, req model.DepositTypeRequest) (model.DepositType, error) {
	return m.UpdateDepositTypeFunc(ctx, id, req)
}

func (m *MockCatalogService) ActivateDepositType(ctx context.Context, id int64) error {
	return m.ActivateDepositTypeFunc(ctx, id)
}

func (m *MockCatalogService) DeactivateDepositType(ctx context.Context, id int64) error {
	return m.DeactivateDepositTypeFunc(ctx, id)
}

func (m *MockCatalogService) GetActiveDepositType(ctx context.Context, id int64) (model.DepositType, error) {
	return m.GetActiveDepositTypeFunc(ctx, id)
}

func (m *MockCatalogService) GetDepositType(ctx context.Context, id int64) (model.DepositType, error) {
	return m.GetDepositTypeFunc(ctx, id)
}

func (m *MockCatalogService) ListActiveDepositTypes(ctx context.Context) ([]model.DepositType, error) {
	return m.ListActiveDepositTypesFunc(ctx)
}

func (m *MockCatalogService) ListDepositTypes(ctx context.Context) ([]model.DepositType, error) {
	return m.ListDepositTypesFunc(ctx)
}

// MockPinger reports a fixed health result.
type MockPinger struct {
	Err error
}

func (m MockPinger) Ping(context.Context) error { return m.Err }

type mocks struct {
	accounts *MockAccountService
	deposits *MockDepositService
	catalog  *MockCatalogService
	health   MockPinger
}

func newTestRouter(m mocks) http.Handler {
	if m.accounts == nil {
		m.accounts = &MockAccountService{}
	}
	if m.deposits == nil {
		m.deposits = &MockDepositService{}
	}
	if m.catalog == nil {
		m.catalog = &MockCatalogService{}
	}
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), RouterDependencies{
		Accounts:     NewAccountHandler(m.accounts),
		Deposits:     NewDepositHandler(m.deposits, m.accounts),
		DepositTypes: NewDepositTypeHandler(m.catalog),
		Health:       m.health,
	})
}

// serve sends a request through the router as clientID with the given comma separated roles.
// An empty clientID sends no identity headers.
func serve(router http.Handler, method, target, body, clientID, roles string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if clientID != "" {
		req.Header.Set(headerClientID, clientID)
	}
	if roles != "" {
		req.Header.Set(headerRoles, roles)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
