package service

import (
	"context"
	"fmt"
	"time"

	"deposit-ledger/interest"
	"deposit-ledger/ledger"
	"deposit-ledger/model"
	"deposit-ledger/storage"

	"github.com/shopspring/decimal"
)

// DepositService runs the deposit lifecycle: ACTIVE on creation, then CLOSED by the owner or
// MATURED once the term has ended. Both terminal states are final.
//
// Each transition debits or credits the account, writes the deposit and appends the journal
// entry in one store transaction, so no balance change survives without its deposit record and
// its entry.
type DepositService struct {
	exec   *executor
	ledger *ledger.Ledger
}

// NewDepositService creates a DepositService.
func NewDepositService(store storage.Store, opts Options) *DepositService {
	exec := newExecutor(store, opts)
	return &DepositService{exec: exec, ledger: ledger.New(exec.now)}
}

// CreateDeposit moves amount from the account into a new ACTIVE deposit under an active
// deposit type.
func (s *DepositService) CreateDeposit(ctx context.Context, req model.CreateDepositRequest) (model.Deposit, error) {
	var created model.Deposit
	err := s.exec.run(ctx, "create_deposit", func(ctx context.Context) error {
		if !model.IsMoneyAmount(req.Amount) {
			return fmt.Errorf("deposit amount %s: %w", req.Amount, ErrInvalidAmount)
		}

		return s.exec.inTx(ctx, "create_deposit", func(repo storage.Repository) error {
			acc, err := repo.FindAccountByNumber(ctx, req.AccountNumber)
			if err != nil {
				return notFound(err, ErrAccountNotFound, "account %s", req.AccountNumber)
			}

			dt, err := repo.FindDepositTypeActive(ctx, req.DepositTypeID)
			if err != nil {
				return notFound(err, ErrProductUnavailable, "deposit type %d", req.DepositTypeID)
			}

			if err := s.ledger.Debit(acc, req.Amount); err != nil {
				return err
			}
			if _, err := repo.SaveAccount(ctx, *acc); err != nil {
				return err
			}

			now := s.exec.now()
			created, err = repo.SaveDeposit(ctx, model.Deposit{
				AccountNumber:   acc.AccountNumber,
				DepositTypeID:   dt.ID,
				DepositTypeName: dt.Name,
				InterestRate:    dt.InterestRate,
				TermMonths:      dt.TermMonths,
				Amount:          req.Amount,
				StartDate:       now,
				EndDate:         model.AddMonths(now, dt.TermMonths),
				Status:          model.DepositActive,
				EarnedInterest:  decimal.Zero,
			})
			if err != nil {
				return err
			}
			_, err = repo.AppendEntry(ctx, ledger.Record(*acc, model.EntryDepositOpened, req.Amount.Neg(), &created.ID))
			return err
		})
	})
	if err != nil {
		return model.Deposit{}, err
	}

	s.exec.logger.Info("deposit opened",
		"deposit_id", created.ID,
		"account_number", created.AccountNumber,
		"amount", created.Amount.StringFixed(model.MoneyScale),
		"end_date", created.EndDate)
	return created, nil
}

// CloseDeposit closes the client's ACTIVE deposit early, paying principal plus the interest
// earned up to now back into the owning account. A deposit owned by another client is reported
// as not found.
func (s *DepositService) CloseDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error) {
	var closed model.Deposit
	err := s.exec.run(ctx, "close_deposit", func(ctx context.Context) error {
		return s.exec.inTx(ctx, "close_deposit", func(repo storage.Repository) error {
			d, err := repo.FindDepositByIDAndClientID(ctx, depositID, clientID)
			if err != nil {
				return notFound(err, ErrDepositNotFound, "deposit %d", depositID)
			}

			now := s.exec.now()
			closed, err = s.settle(ctx, repo, *d, now, now, model.DepositClosed)
			return err
		})
	})
	if err != nil {
		return model.Deposit{}, err
	}

	s.exec.logger.Info("deposit closed",
		"deposit_id", closed.ID,
		"account_number", closed.AccountNumber,
		"earned_interest", closed.EarnedInterest.StringFixed(model.MoneyScale))
	return closed, nil
}

// MatureDeposit settles an ACTIVE deposit whose end date has passed. Interest is computed up to
// the end date. It is meant for an external scheduler and is not scoped to a client.
func (s *DepositService) MatureDeposit(ctx context.Context, depositID int64) (model.Deposit, error) {
	var matured model.Deposit
	err := s.exec.run(ctx, "mature_deposit", func(ctx context.Context) error {
		return s.exec.inTx(ctx, "mature_deposit", func(repo storage.Repository) error {
			d, err := repo.FindDepositByID(ctx, depositID)
			if err != nil {
				return notFound(err, ErrDepositNotFound, "deposit %d", depositID)
			}

			now := s.exec.now()
			if d.Status == model.DepositActive && now.Before(d.EndDate) {
				return fmt.Errorf("deposit %d ends %s: %w", d.ID, d.EndDate.Format(time.RFC3339), ErrNotMatured)
			}
			matured, err = s.settle(ctx, repo, *d, d.EndDate, now, model.DepositMatured)
			return err
		})
	})
	if err != nil {
		return model.Deposit{}, err
	}

	s.exec.logger.Info("deposit matured",
		"deposit_id", matured.ID,
		"account_number", matured.AccountNumber,
		"earned_interest", matured.EarnedInterest.StringFixed(model.MoneyScale))
	return matured, nil
}

// settle credits principal plus interest as of asOf to the owning account, moves the deposit
// into the terminal status and journals the payout. It must run inside the transaction that
// loaded d.
func (s *DepositService) settle(ctx context.Context, repo storage.Repository, d model.Deposit, asOf, now time.Time, status model.DepositStatus) (model.Deposit, error) {
	if d.Status != model.DepositActive {
		return model.Deposit{}, fmt.Errorf("deposit %d is %s: %w", d.ID, d.Status, ErrAlreadyClosed)
	}

	payout := interest.MaturityAmount(d, asOf)

	acc, err := repo.FindAccountByNumber(ctx, d.AccountNumber)
	if err != nil {
		return model.Deposit{}, notFound(err, ErrAccountNotFound, "account %s", d.AccountNumber)
	}
	if err := s.ledger.Credit(acc, payout); err != nil {
		return model.Deposit{}, err
	}
	if _, err := repo.SaveAccount(ctx, *acc); err != nil {
		return model.Deposit{}, err
	}

	d.EarnedInterest = payout.Sub(d.Amount)
	d.Status = status
	d.ClosedAt = &now
	settled, err := repo.SaveDeposit(ctx, d)
	if err != nil {
		return model.Deposit{}, err
	}

	kind := model.EntryDepositClosed
	if status == model.DepositMatured {
		kind = model.EntryDepositMatured
	}
	if _, err := repo.AppendEntry(ctx, ledger.Record(*acc, kind, payout, &settled.ID)); err != nil {
		return model.Deposit{}, err
	}
	return settled, nil
}

// ListDepositsByClient returns every deposit on the client's accounts in creation order.
func (s *DepositService) ListDepositsByClient(ctx context.Context, clientID string) ([]model.Deposit, error) {
	var deposits []model.Deposit
	err := s.exec.run(ctx, "list_deposits_by_client", func(ctx context.Context) error {
		var err error
		deposits, err = s.exec.store.FindDepositsByClientID(ctx, clientID)
		return err
	})
	return deposits, err
}

// ListDepositsByAccount returns the deposits opened against one account in creation order.
func (s *DepositService) ListDepositsByAccount(ctx context.Context, accountNumber string) ([]model.Deposit, error) {
	var deposits []model.Deposit
	err := s.exec.run(ctx, "list_deposits_by_account", func(ctx context.Context) error {
		var err error
		deposits, err = s.exec.store.FindDepositsByAccountNumber(ctx, accountNumber)
		return err
	})
	return deposits, err
}

// ListDueDeposits returns ACTIVE deposits whose end date is at or before asOf.
func (s *DepositService) ListDueDeposits(ctx context.Context, asOf time.Time) ([]model.Deposit, error) {
	var deposits []model.Deposit
	err := s.exec.run(ctx, "list_due_deposits", func(ctx context.Context) error {
		var err error
		deposits, err = s.exec.store.FindDepositsDue(ctx, asOf)
		return err
	})
	return deposits, err
}

// GetDeposit returns one of the client's deposits. A deposit owned by another client is reported
// as not found.
func (s *DepositService) GetDeposit(ctx context.Context, depositID int64, clientID string) (model.Deposit, error) {
	var d *model.Deposit
	err := s.exec.run(ctx, "get_deposit", func(ctx context.Context) error {
		var err error
		d, err = s.exec.store.FindDepositByIDAndClientID(ctx, depositID, clientID)
		return notFound(err, ErrDepositNotFound, "deposit %d", depositID)
	})
	if err != nil {
		return model.Deposit{}, err
	}
	return *d, nil
}
