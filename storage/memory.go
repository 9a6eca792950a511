package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"deposit-ledger/model"
)

// MemoryStore is an in-process Store for tests that do not need a database.
//
// Transactions are serialized by a one-slot semaphore, which gives the same guarantee as the
// Postgres row locks: a second transaction on the same account reads what the first committed.
// Writes are staged per transaction and applied only on commit.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]model.Account
	types    map[int64]model.DepositType
	deposits map[int64]model.Deposit
	entries  []model.Entry
	nextID   int64

	txSem chan struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]model.Account),
		types:    make(map[int64]model.DepositType),
		deposits: make(map[int64]model.Deposit),
		txSem:    make(chan struct{}, 1),
	}
}

// InTx runs fn with exclusive write access. It gives up with ctx.Err() if another transaction
// holds the store past the context deadline.
func (s *MemoryStore) InTx(ctx context.Context, fn func(repo Repository) error) error {
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("could not begin transaction: %w", ctx.Err())
	}
	defer func() { <-s.txSem }()

	tx := s.begin()
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	s.commit(tx)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) begin() *memTx {
	return &memTx{
		store:    s,
		accounts: make(map[int64]model.Account),
		types:    make(map[int64]model.DepositType),
		deposits: make(map[int64]model.Deposit),
	}
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acc := range tx.accounts {
		s.accounts[id] = acc
	}
	for id, dt := range tx.types {
		s.types[id] = dt
	}
	for id, d := range tx.deposits {
		s.deposits[id] = d
	}
	s.entries = append(s.entries, tx.entries...)
}

func (s *MemoryStore) newID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// autoCommit runs a single write in its own transaction.
func autoCommit[T any](ctx context.Context, s *MemoryStore, fn func(repo Repository) (T, error)) (T, error) {
	var out T
	err := s.InTx(ctx, func(repo Repository) error {
		var err error
		out, err = fn(repo)
		return err
	})
	return out, err
}

// read returns a view over committed data only.
func (s *MemoryStore) read() *memTx { return &memTx{store: s} }

func (s *MemoryStore) FindAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	return s.read().FindAccountByNumber(ctx, number)
}

func (s *MemoryStore) FindAccountByClientID(ctx context.Context, clientID string) (*model.Account, error) {
	return s.read().FindAccountByClientID(ctx, clientID)
}

func (s *MemoryStore) SaveAccount(ctx context.Context, acc model.Account) (model.Account, error) {
	return autoCommit(ctx, s, func(repo Repository) (model.Account, error) { return repo.SaveAccount(ctx, acc) })
}

func (s *MemoryStore) FindDepositTypeActive(ctx context.Context, id int64) (*model.DepositType, error) {
	return s.read().FindDepositTypeActive(ctx, id)
}

func (s *MemoryStore) FindDepositTypeByID(ctx context.Context, id int64) (*model.DepositType, error) {
	return s.read().FindDepositTypeByID(ctx, id)
}

func (s *MemoryStore) SaveDepositType(ctx context.Context, dt model.DepositType) (model.DepositType, error) {
	return autoCommit(ctx, s, func(repo Repository) (model.DepositType, error) { return repo.SaveDepositType(ctx, dt) })
}

func (s *MemoryStore) ListDepositTypes(ctx context.Context, activeOnly bool) ([]model.DepositType, error) {
	return s.read().ListDepositTypes(ctx, activeOnly)
}

func (s *MemoryStore) FindDepositByID(ctx context.Context, id int64) (*model.Deposit, error) {
	return s.read().FindDepositByID(ctx, id)
}

func (s *MemoryStore) FindDepositByIDAndClientID(ctx context.Context, id int64, clientID string) (*model.Deposit, error) {
	return s.read().FindDepositByIDAndClientID(ctx, id, clientID)
}

func (s *MemoryStore) FindDepositsByAccountNumber(ctx context.Context, number string) ([]model.Deposit, error) {
	return s.read().FindDepositsByAccountNumber(ctx, number)
}

func (s *MemoryStore) FindDepositsByClientID(ctx context.Context, clientID string) ([]model.Deposit, error) {
	return s.read().FindDepositsByClientID(ctx, clientID)
}

func (s *MemoryStore) FindDepositsDue(ctx context.Context, asOf time.Time) ([]model.Deposit, error) {
	return s.read().FindDepositsDue(ctx, asOf)
}

func (s *MemoryStore) SaveDeposit(ctx context.Context, d model.Deposit) (model.Deposit, error) {
	return autoCommit(ctx, s, func(repo Repository) (model.Deposit, error) { return repo.SaveDeposit(ctx, d) })
}

func (s *MemoryStore) AppendEntry(ctx context.Context, e model.Entry) (model.Entry, error) {
	return autoCommit(ctx, s, func(repo Repository) (model.Entry, error) { return repo.AppendEntry(ctx, e) })
}

func (s *MemoryStore) ListEntriesByAccount(ctx context.Context, number string) ([]model.Entry, error) {
	return s.read().ListEntriesByAccount(ctx, number)
}

// memTx is a Repository over committed data overlaid with the writes staged by one transaction.
// A memTx with nil staging maps is a read-only view.
type memTx struct {
	store    *MemoryStore
	accounts map[int64]model.Account
	types    map[int64]model.DepositType
	deposits map[int64]model.Deposit
	entries  []model.Entry
}

// snapshot returns the current view of every record, staged writes winning over committed ones.
func (t *memTx) snapshot() (map[int64]model.Account, map[int64]model.DepositType, map[int64]model.Deposit) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	accounts := make(map[int64]model.Account, len(t.store.accounts)+len(t.accounts))
	for id, acc := range t.store.accounts {
		accounts[id] = acc
	}
	for id, acc := range t.accounts {
		accounts[id] = acc
	}
	types := make(map[int64]model.DepositType, len(t.store.types)+len(t.types))
	for id, dt := range t.store.types {
		types[id] = dt
	}
	for id, dt := range t.types {
		types[id] = dt
	}
	deposits := make(map[int64]model.Deposit, len(t.store.deposits)+len(t.deposits))
	for id, d := range t.store.deposits {
		deposits[id] = d
	}
	for id, d := range t.deposits {
		deposits[id] = d
	}
	return accounts, types, deposits
}

func (t *memTx) writable() error {
	if t.accounts == nil {
		return fmt.Errorf("write outside transaction")
	}
	return nil
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *memTx) FindAccountByNumber(_ context.Context, number string) (*model.Account, error) {
	accounts, _, _ := t.snapshot()
	for _, id := range sortedIDs(accounts) {
		if acc := accounts[id]; acc.AccountNumber == number {
			return &acc, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) FindAccountByClientID(_ context.Context, clientID string) (*model.Account, error) {
	accounts, _, _ := t.snapshot()
	for _, id := range sortedIDs(accounts) {
		if acc := accounts[id]; acc.ClientID == clientID {
			return &acc, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SaveAccount(_ context.Context, acc model.Account) (model.Account, error) {
	if err := t.writable(); err != nil {
		return model.Account{}, err
	}
	accounts, _, _ := t.snapshot()

	if acc.ID == 0 {
		for _, existing := range accounts {
			if existing.AccountNumber == acc.AccountNumber {
				return model.Account{}, fmt.Errorf("insert account %s: %w", acc.AccountNumber, ErrDuplicate)
			}
		}
		acc.ID = t.store.newID()
		acc.Version = 1
		t.accounts[acc.ID] = acc
		return acc, nil
	}

	current, ok := accounts[acc.ID]
	if !ok || current.Version != acc.Version {
		return model.Account{}, fmt.Errorf("update account %s: %w", acc.AccountNumber, ErrConflict)
	}
	current.Balance = acc.Balance
	current.UpdatedAt = acc.UpdatedAt
	current.Version++
	t.accounts[current.ID] = current
	return current, nil
}

func (t *memTx) FindDepositTypeActive(ctx context.Context, id int64) (*model.DepositType, error) {
	dt, err := t.FindDepositTypeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !dt.IsActive {
		return nil, ErrNotFound
	}
	return dt, nil
}

func (t *memTx) FindDepositTypeByID(_ context.Context, id int64) (*model.DepositType, error) {
	_, types, _ := t.snapshot()
	dt, ok := types[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &dt, nil
}

func (t *memTx) SaveDepositType(_ context.Context, dt model.DepositType) (model.DepositType, error) {
	if err := t.writable(); err != nil {
		return model.DepositType{}, err
	}
	_, types, _ := t.snapshot()

	for id, existing := range types {
		if id != dt.ID && existing.Name == dt.Name {
			return model.DepositType{}, fmt.Errorf("save deposit type %q: %w", dt.Name, ErrDuplicate)
		}
	}
	if dt.ID == 0 {
		dt.ID = t.store.newID()
	} else {
		current, ok := types[dt.ID]
		if !ok {
			return model.DepositType{}, fmt.Errorf("update deposit type %d: %w", dt.ID, ErrNotFound)
		}
		dt.CreatedAt = current.CreatedAt
	}
	t.types[dt.ID] = dt
	return dt, nil
}

func (t *memTx) ListDepositTypes(_ context.Context, activeOnly bool) ([]model.DepositType, error) {
	_, types, _ := t.snapshot()
	out := []model.DepositType{}
	for _, id := range sortedIDs(types) {
		if dt := types[id]; dt.IsActive || !activeOnly {
			out = append(out, dt)
		}
	}
	return out, nil
}

func (t *memTx) FindDepositByID(_ context.Context, id int64) (*model.Deposit, error) {
	_, _, deposits := t.snapshot()
	d, ok := deposits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memTx) FindDepositByIDAndClientID(_ context.Context, id int64, clientID string) (*model.Deposit, error) {
	accounts, _, deposits := t.snapshot()
	d, ok := deposits[id]
	if !ok || !ownedBy(accounts, d.AccountNumber, clientID) {
		return nil, ErrNotFound
	}
	return &d, nil
}

func ownedBy(accounts map[int64]model.Account, number, clientID string) bool {
	for _, acc := range accounts {
		if acc.AccountNumber == number {
			return acc.ClientID == clientID
		}
	}
	return false
}

func (t *memTx) FindDepositsByAccountNumber(_ context.Context, number string) ([]model.Deposit, error) {
	_, _, deposits := t.snapshot()
	return filterDeposits(deposits, func(d model.Deposit) bool { return d.AccountNumber == number }), nil
}

func (t *memTx) FindDepositsByClientID(_ context.Context, clientID string) ([]model.Deposit, error) {
	accounts, _, deposits := t.snapshot()
	return filterDeposits(deposits, func(d model.Deposit) bool {
		return ownedBy(accounts, d.AccountNumber, clientID)
	}), nil
}

func (t *memTx) FindDepositsDue(_ context.Context, asOf time.Time) ([]model.Deposit, error) {
	_, _, deposits := t.snapshot()
	due := filterDeposits(deposits, func(d model.Deposit) bool {
		return d.Status == model.DepositActive && !d.EndDate.After(asOf)
	})
	sort.SliceStable(due, func(i, j int) bool { return due[i].EndDate.Before(due[j].EndDate) })
	return due, nil
}

func filterDeposits(deposits map[int64]model.Deposit, keep func(model.Deposit) bool) []model.Deposit {
	out := []model.Deposit{}
	for _, id := range sortedIDs(deposits) {
		if d := deposits[id]; keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (t *memTx) SaveDeposit(_ context.Context, d model.Deposit) (model.Deposit, error) {
	if err := t.writable(); err != nil {
		return model.Deposit{}, err
	}
	accounts, types, deposits := t.snapshot()

	if d.ID == 0 {
		if !accountExists(accounts, d.AccountNumber) {
			return model.Deposit{}, fmt.Errorf("insert deposit: account %s: %w", d.AccountNumber, ErrNotFound)
		}
		if _, ok := types[d.DepositTypeID]; !ok {
			return model.Deposit{}, fmt.Errorf("insert deposit: deposit type %d: %w", d.DepositTypeID, ErrNotFound)
		}
		d.ID = t.store.newID()
		d.Version = 1
		t.deposits[d.ID] = d
		return d, nil
	}

	current, ok := deposits[d.ID]
	if !ok || current.Version != d.Version {
		return model.Deposit{}, fmt.Errorf("update deposit %d: %w", d.ID, ErrConflict)
	}
	current.Status = d.Status
	current.EarnedInterest = d.EarnedInterest
	current.ClosedAt = d.ClosedAt
	current.Version++
	t.deposits[current.ID] = current
	return current, nil
}

func accountExists(accounts map[int64]model.Account, number string) bool {
	for _, acc := range accounts {
		if acc.AccountNumber == number {
			return true
		}
	}
	return false
}

func (t *memTx) AppendEntry(_ context.Context, e model.Entry) (model.Entry, error) {
	if err := t.writable(); err != nil {
		return model.Entry{}, err
	}
	accounts, _, deposits := t.snapshot()
	if !accountExists(accounts, e.AccountNumber) {
		return model.Entry{}, fmt.Errorf("insert entry: account %s: %w", e.AccountNumber, ErrNotFound)
	}
	if e.DepositID != nil {
		if _, ok := deposits[*e.DepositID]; !ok {
			return model.Entry{}, fmt.Errorf("insert entry: deposit %d: %w", *e.DepositID, ErrNotFound)
		}
	}
	e.ID = t.store.newID()
	t.entries = append(t.entries, e)
	return e, nil
}

func (t *memTx) ListEntriesByAccount(_ context.Context, number string) ([]model.Entry, error) {
	t.store.mu.RLock()
	all := append(append([]model.Entry{}, t.store.entries...), t.entries...)
	t.store.mu.RUnlock()

	out := []model.Entry{}
	for _, e := range all {
		if e.AccountNumber == number {
			out = append(out, e)
		}
	}
	return out, nil
}
