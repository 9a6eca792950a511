package storage

import (
	"context"
	"fmt"
	"time"

	"deposit-ledger/model"

	"github.com/jackc/pgx/v5"
)

// queries implements Repository on top of either the pool or an open transaction.
// When lock is set, single-row account and deposit reads use SELECT ... FOR UPDATE.
type queries struct {
	db   dbtx
	lock bool
}

const (
	accountColumns = `id, account_number, client_id, currency, balance, version, created_at, updated_at`
	typeColumns    = `id, name, interest_rate, term_months, description, is_active, created_at, updated_at`
	entryColumns   = `id, account_number, kind, amount, balance_after, deposit_id, created_at`
	depositColumns = `d.id, d.account_number, d.deposit_type_id, d.deposit_type_name, d.interest_rate,
        d.term_months, d.amount, d.start_date, d.end_date, d.status, d.earned_interest, d.closed_at, d.version`
)

func (q *queries) forUpdate(of string) string {
	if !q.lock {
		return ""
	}
	if of != "" {
		return " FOR UPDATE OF " + of
	}
	return " FOR UPDATE"
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var acc model.Account
	err := row.Scan(&acc.ID, &acc.AccountNumber, &acc.ClientID, &acc.Currency, &acc.Balance,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &acc, nil
}

func scanDepositType(row pgx.Row) (*model.DepositType, error) {
	var dt model.DepositType
	err := row.Scan(&dt.ID, &dt.Name, &dt.InterestRate, &dt.TermMonths, &dt.Description,
		&dt.IsActive, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &dt, nil
}

func scanDeposit(row pgx.Row) (*model.Deposit, error) {
	var d model.Deposit
	var status string
	err := row.Scan(&d.ID, &d.AccountNumber, &d.DepositTypeID, &d.DepositTypeName, &d.InterestRate,
		&d.TermMonths, &d.Amount, &d.StartDate, &d.EndDate, &status, &d.EarnedInterest, &d.ClosedAt, &d.Version)
	if err != nil {
		return nil, translateError(err)
	}
	d.Status = model.DepositStatus(status)
	return &d, nil
}

// FindAccountByNumber retrieves a single account by its number.
func (q *queries) FindAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE account_number = $1" + q.forUpdate("")
	return scanAccount(q.db.QueryRow(ctx, query, number))
}

// FindAccountByClientID retrieves the client's first account.
func (q *queries) FindAccountByClientID(ctx context.Context, clientID string) (*model.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE client_id = $1 ORDER BY id LIMIT 1" + q.forUpdate("")
	return scanAccount(q.db.QueryRow(ctx, query, clientID))
}

// SaveAccount inserts a new account or updates balance and updated_at of an existing one.
func (q *queries) SaveAccount(ctx context.Context, acc model.Account) (model.Account, error) {
	if acc.ID == 0 {
		query := `
		INSERT INTO accounts (account_number, client_id, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version`
		err := q.db.QueryRow(ctx, query, acc.AccountNumber, acc.ClientID, acc.Currency, acc.Balance,
			acc.CreatedAt, acc.UpdatedAt).Scan(&acc.ID, &acc.Version)
		if err != nil {
			return model.Account{}, fmt.Errorf("insert account %s: %w", acc.AccountNumber, translateError(err))
		}
		return acc, nil
	}

	query := `
		UPDATE accounts SET balance = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version`
	err := q.db.QueryRow(ctx, query, acc.Balance, acc.UpdatedAt, acc.ID, acc.Version).Scan(&acc.Version)
	if err != nil {
		if err = translateError(err); err == ErrNotFound {
			err = ErrConflict
		}
		return model.Account{}, fmt.Errorf("update account %s: %w", acc.AccountNumber, err)
	}
	return acc, nil
}

// FindDepositTypeActive retrieves a deposit type only if it is active.
func (q *queries) FindDepositTypeActive(ctx context.Context, id int64) (*model.DepositType, error) {
	query := "SELECT " + typeColumns + " FROM deposit_types WHERE id = $1 AND is_active"
	return scanDepositType(q.db.QueryRow(ctx, query, id))
}

// FindDepositTypeByID retrieves a deposit type whether or not it is active.
func (q *queries) FindDepositTypeByID(ctx context.Context, id int64) (*model.DepositType, error) {
	query := "SELECT " + typeColumns + " FROM deposit_types WHERE id = $1"
	return scanDepositType(q.db.QueryRow(ctx, query, id))
}

// SaveDepositType inserts a new deposit type or replaces every mutable field of an existing one.
func (q *queries) SaveDepositType(ctx context.Context, dt model.DepositType) (model.DepositType, error) {
	if dt.ID == 0 {
		query := `
		INSERT INTO deposit_types (name, interest_rate, term_months, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
		err := q.db.QueryRow(ctx, query, dt.Name, dt.InterestRate, dt.TermMonths, dt.Description,
			dt.IsActive, dt.CreatedAt, dt.UpdatedAt).Scan(&dt.ID)
		if err != nil {
			return model.DepositType{}, fmt.Errorf("insert deposit type %q: %w", dt.Name, translateError(err))
		}
		return dt, nil
	}

	query := `
		UPDATE deposit_types
		SET name = $1, interest_rate = $2, term_months = $3, description = $4, is_active = $5, updated_at = $6
		WHERE id = $7`
	tag, err := q.db.Exec(ctx, query, dt.Name, dt.InterestRate, dt.TermMonths, dt.Description,
		dt.IsActive, dt.UpdatedAt, dt.ID)
	if err != nil {
		return model.DepositType{}, fmt.Errorf("update deposit type %d: %w", dt.ID, translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.DepositType{}, fmt.Errorf("update deposit type %d: %w", dt.ID, ErrNotFound)
	}
	return dt, nil
}

// ListDepositTypes returns deposit types in creation order.
func (q *queries) ListDepositTypes(ctx context.Context, activeOnly bool) ([]model.DepositType, error) {
	query := "SELECT " + typeColumns + " FROM deposit_types WHERE is_active OR NOT $1 ORDER BY id"
	rows, err := q.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("could not query deposit types: %w", translateError(err))
	}
	defer rows.Close()

	types := []model.DepositType{}
	for rows.Next() {
		dt, err := scanDepositType(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan deposit type row: %w", err)
		}
		types = append(types, *dt)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return types, nil
}

// FindDepositByID retrieves a single deposit by its ID.
func (q *queries) FindDepositByID(ctx context.Context, id int64) (*model.Deposit, error) {
	query := "SELECT " + depositColumns + " FROM deposits d WHERE d.id = $1" + q.forUpdate("d")
	return scanDeposit(q.db.QueryRow(ctx, query, id))
}

// FindDepositByIDAndClientID retrieves a deposit only if it belongs to one of the client's accounts.
func (q *queries) FindDepositByIDAndClientID(ctx context.Context, id int64, clientID string) (*model.Deposit, error) {
	query := "SELECT " + depositColumns + `
        FROM deposits d JOIN accounts a ON a.account_number = d.account_number
        WHERE d.id = $1 AND a.client_id = $2` + q.forUpdate("d")
	return scanDeposit(q.db.QueryRow(ctx, query, id, clientID))
}

// FindDepositsByAccountNumber lists the deposits opened against one account.
func (q *queries) FindDepositsByAccountNumber(ctx context.Context, number string) ([]model.Deposit, error) {
	query := "SELECT " + depositColumns + " FROM deposits d WHERE d.account_number = $1 ORDER BY d.id"
	return q.listDeposits(ctx, query, number)
}

// FindDepositsByClientID lists the deposits across every account of a client.
func (q *queries) FindDepositsByClientID(ctx context.Context, clientID string) ([]model.Deposit, error) {
	query := "SELECT " + depositColumns + `
        FROM deposits d JOIN accounts a ON a.account_number = d.account_number
        WHERE a.client_id = $1 ORDER BY d.id`
	return q.listDeposits(ctx, query, clientID)
}

// FindDepositsDue lists active deposits whose term has ended by asOf.
func (q *queries) FindDepositsDue(ctx context.Context, asOf time.Time) ([]model.Deposit, error) {
	query := "SELECT " + depositColumns + `
        FROM deposits d WHERE d.status = $1 AND d.end_date <= $2 ORDER BY d.end_date, d.id`
	return q.listDeposits(ctx, query, string(model.DepositActive), asOf)
}

func (q *queries) listDeposits(ctx context.Context, query string, args ...any) ([]model.Deposit, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query deposits: %w", translateError(err))
	}
	defer rows.Close()

	deposits := []model.Deposit{}
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan deposit row: %w", err)
		}
		deposits = append(deposits, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return deposits, nil
}

// SaveDeposit inserts a new deposit or records the terminal transition of an existing one.
// Principal, dates and the rate snapshot are never rewritten.
func (q *queries) SaveDeposit(ctx context.Context, d model.Deposit) (model.Deposit, error) {
	if d.ID == 0 {
		query := `
		INSERT INTO deposits (account_number, deposit_type_id, deposit_type_name, interest_rate, term_months,
		    amount, start_date, end_date, status, earned_interest, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version`
		err := q.db.QueryRow(ctx, query, d.AccountNumber, d.DepositTypeID, d.DepositTypeName, d.InterestRate,
			d.TermMonths, d.Amount, d.StartDate, d.EndDate, string(d.Status), d.EarnedInterest, d.ClosedAt).
			Scan(&d.ID, &d.Version)
		if err != nil {
			return model.Deposit{}, fmt.Errorf("insert deposit for %s: %w", d.AccountNumber, translateError(err))
		}
		return d, nil
	}

	query := `
		UPDATE deposits SET status = $1, earned_interest = $2, closed_at = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version`
	err := q.db.QueryRow(ctx, query, string(d.Status), d.EarnedInterest, d.ClosedAt, d.ID, d.Version).Scan(&d.Version)
	if err != nil {
		if err = translateError(err); err == ErrNotFound {
			err = ErrConflict
		}
		return model.Deposit{}, fmt.Errorf("update deposit %d: %w", d.ID, err)
	}
	return d, nil
}

// AppendEntry inserts a journal line.
func (q *queries) AppendEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	query := `
		INSERT INTO entries (account_number, kind, amount, balance_after, deposit_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := q.db.QueryRow(ctx, query, e.AccountNumber, string(e.Kind), e.Amount, e.BalanceAfter,
		e.DepositID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return model.Entry{}, fmt.Errorf("insert %s entry for %s: %w", e.Kind, e.AccountNumber, translateError(err))
	}
	return e, nil
}

// ListEntriesByAccount returns an account's journal, oldest first.
func (q *queries) ListEntriesByAccount(ctx context.Context, number string) ([]model.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE account_number = $1 ORDER BY id"
	rows, err := q.db.Query(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("could not query entries: %w", translateError(err))
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		var e model.Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.AccountNumber, &kind, &e.Amount, &e.BalanceAfter, &e.DepositID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan entry row: %w", translateError(err))
		}
		e.Kind = model.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}
