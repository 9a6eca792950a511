// storage/postgres.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	ConnString      string
	ConnectAttempts int
	MaxConns        int32
}

// dbtx is the part of pgxpool.Pool and pgx.Tx the queries need.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
	*queries
}

// NewPostgresStore creates a new PostgresStore, connects to the database, and initializes the schema.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	// Retry connecting to the database for a few seconds
	var pool *pgxpool.Pool
	for i := 0; i < attempts; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after %d attempts: %w", attempts, err)
	}

	store := newPostgresStore(pool)
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	return store, nil
}

func newPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool, queries: &queries{db: pool}}
}

// initSchema creates the necessary tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS accounts (
        id BIGSERIAL PRIMARY KEY,
        account_number TEXT NOT NULL UNIQUE,
        client_id TEXT NOT NULL,
        currency TEXT NOT NULL,
        balance NUMERIC(19, 5) NOT NULL CHECK (balance >= 0),
        version BIGINT NOT NULL DEFAULT 1,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );
    CREATE INDEX IF NOT EXISTS accounts_client_id_idx ON accounts (client_id);

    CREATE TABLE IF NOT EXISTS deposit_types (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        interest_rate NUMERIC(20, 10) NOT NULL CHECK (interest_rate > 0),
        term_months INTEGER NOT NULL CHECK (term_months > 0),
        description TEXT NOT NULL DEFAULT '',
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS deposits (
        id BIGSERIAL PRIMARY KEY,
        account_number TEXT NOT NULL REFERENCES accounts (account_number),
        deposit_type_id BIGINT NOT NULL REFERENCES deposit_types (id),
        deposit_type_name TEXT NOT NULL,
        interest_rate NUMERIC(20, 10) NOT NULL,
        term_months INTEGER NOT NULL,
        amount NUMERIC(19, 5) NOT NULL CHECK (amount > 0),
        start_date TIMESTAMPTZ NOT NULL,
        end_date TIMESTAMPTZ NOT NULL,
        status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'CLOSED', 'MATURED')),
        earned_interest NUMERIC(19, 5) NOT NULL DEFAULT 0,
        closed_at TIMESTAMPTZ,
        version BIGINT NOT NULL DEFAULT 1
    );
    CREATE INDEX IF NOT EXISTS deposits_account_number_idx ON deposits (account_number);
    CREATE INDEX IF NOT EXISTS deposits_status_end_date_idx ON deposits (status, end_date);

    CREATE TABLE IF NOT EXISTS entries (
        id BIGSERIAL PRIMARY KEY,
        account_number TEXT NOT NULL REFERENCES accounts (account_number),
        kind TEXT NOT NULL CHECK (kind IN ('FUNDED', 'DEPOSIT_OPENED', 'DEPOSIT_CLOSED', 'DEPOSIT_MATURED')),
        amount NUMERIC(19, 5) NOT NULL CHECK (amount <> 0),
        balance_after NUMERIC(19, 5) NOT NULL CHECK (balance_after >= 0),
        deposit_id BIGINT REFERENCES deposits (id),
        created_at TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS entries_account_number_idx ON entries (account_number, id);`
	_, err := s.db.Exec(ctx, query)
	return err
}

// InTx runs fn in a database transaction. Account and deposit reads made through the
// transaction's Repository take row locks, so two transactions touching the same row run one
// after the other and the second sees the first one's committed values.
func (s *PostgresStore) InTx(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", translateError(err))
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction has been committed.

	if err := fn(&queries{db: tx, lock: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("could not commit transaction: %w", translateError(err))
	}
	return nil
}

// Ping checks that a connection can be acquired and used.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return translateError(err)
	}
	return nil
}

// Close releases every pooled connection.
func (s *PostgresStore) Close() {
	s.db.Close()
}

// translateError maps driver errors onto the storage sentinels. Context errors pass through
// unchanged so callers can tell a timeout from a lost connection.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
		return fmt.Errorf("postgres error %s: %w", pgErr.Code, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
