// Package service implements the account operations, the deposit type catalog and the deposit
// lifecycle on top of a storage.Store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"deposit-ledger/storage"
)

// DefaultTimeout bounds every service call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Observer receives the outcome of every service operation.
type Observer interface {
	ObserveOperation(op string, duration time.Duration, outcome string)
	ObserveRetry(op string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, time.Duration, string) {}
func (nopObserver) ObserveRetry(string)                            {}

// Options carries the dependencies shared by all services.
type Options struct {
	// Timeout bounds each call, store round trips included.
	Timeout time.Duration
	// Now is the clock. Defaults to time.Now.
	Now      func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

// executor applies the per-call timeout, the single conflict retry, error mapping, logging and
// observation shared by every operation.
type executor struct {
	store    storage.Store
	timeout  time.Duration
	clock    func() time.Time
	logger   *slog.Logger
	observer Observer
}

func newExecutor(store storage.Store, opts Options) *executor {
	e := &executor{
		store:    store,
		timeout:  opts.Timeout,
		clock:    opts.Now,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// now returns the current time in UTC at the microsecond precision Postgres stores.
func (e *executor) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}

// run executes fn under the call timeout and reports its outcome.
func (e *executor) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := mapStoreError(fn(ctx))
	outcome := Outcome(err)
	e.observer.ObserveOperation(op, time.Since(start), outcome)

	switch outcome {
	case "ok":
	case "canceled":
		e.logger.Info("operation canceled by caller", "op", op)
	case "store_unavailable", "error":
		e.logger.Error("operation failed", "op", op, "error", err)
	default:
		e.logger.Info("operation rejected", "op", op, "reason", outcome, "error", err)
	}
	return err
}

// inTx runs fn as one atomic unit. When a concurrent write invalidates what fn read, fn runs once
// more against freshly loaded records; a second conflict is returned to the caller.
func (e *executor) inTx(ctx context.Context, op string, fn func(repo storage.Repository) error) error {
	err := e.store.InTx(ctx, fn)
	if errors.Is(err, storage.ErrConflict) && ctx.Err() == nil {
		e.logger.Warn("retrying after concurrent update", "op", op, "error", err)
		e.observer.ObserveRetry(op)
		err = e.store.InTx(ctx, fn)
	}
	return err
}
