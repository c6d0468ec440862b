package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store used by tests and by the
// standalone server mode. Transactions keep insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*Account
	trxs     map[uuid.UUID]*Transaction
	order    []uuid.UUID
	splits   map[uuid.UUID]*Split
	lots     map[uuid.UUID][]*Lot
	clock    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*Account),
		trxs:     make(map[uuid.UUID]*Transaction),
		splits:   make(map[uuid.UUID]*Split),
		lots:     make(map[uuid.UUID][]*Lot),
		clock:    time.Now,
	}
}

// WithClock overrides the wall clock used for entered dates.
func (m *MemoryStore) WithClock(clock func() time.Time) {
	if clock != nil {
		m.clock = clock
	}
}

// AddAccount seeds an account. The given balance is the account's base
// balance; split quantities bound to the account are added on top.
func (m *MemoryStore) AddAccount(acct *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	m.accounts[acct.ID] = acct
}

// AddLot seeds a lot on a stock account.
func (m *MemoryStore) AddLot(lot *Lot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	m.lots[lot.AccountID] = append(m.lots[lot.AccountID], lot)
}

func (m *MemoryStore) AccountByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acct
	out.Balance = m.balanceLocked(id, acct.Balance)
	return &out, nil
}

// balanceLocked folds split quantities into the seeded base balance.
func (m *MemoryStore) balanceLocked(acctID uuid.UUID, base decimal.Decimal) decimal.Decimal {
	sum := base
	for _, splt := range m.splits {
		if splt.AccountID == acctID {
			sum = sum.Add(splt.Quantity)
		}
	}
	return sum
}

func (m *MemoryStore) TransactionByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trx, ok := m.trxs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return trx, nil
}

func (m *MemoryStore) SplitByID(_ context.Context, id uuid.UUID) (*Split, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	splt, ok := m.splits[id]
	if !ok {
		return nil, ErrSplitNotFound
	}
	return splt, nil
}

func (m *MemoryStore) Transactions(_ context.Context) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Transaction, 0, len(m.order))
	for _, id := range m.order {
		if trx, ok := m.trxs[id]; ok {
			out = append(out, trx)
		}
	}
	return out, nil
}

func (m *MemoryStore) TransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*Transaction, error) {
	all, err := m.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Transaction, 0, len(all))
	for _, trx := range all {
		if trx.DatePosted.Before(from) || trx.DatePosted.After(to) {
			continue
		}
		out = append(out, trx)
	}
	return out, nil
}

func (m *MemoryStore) Splits(_ context.Context) ([]*Split, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Split, 0, len(m.splits))
	for _, id := range m.order {
		trx, ok := m.trxs[id]
		if !ok {
			continue
		}
		out = append(out, trx.Splits...)
	}
	return out, nil
}

func (m *MemoryStore) ChildAccounts(_ context.Context, parentID uuid.UUID) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Account
	for _, acct := range m.accounts {
		if acct.ParentID != nil && *acct.ParentID == parentID {
			child := *acct
			child.Balance = m.balanceLocked(acct.ID, acct.Balance)
			out = append(out, &child)
		}
	}
	return out, nil
}

func (m *MemoryStore) LotsByAccount(_ context.Context, accountID uuid.UUID) ([]*Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	return m.lots[accountID], nil
}

func (m *MemoryStore) NewTransaction(_ context.Context) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx := &Transaction{
		ID:          uuid.New(),
		DateEntered: m.clock(),
	}
	m.trxs[trx.ID] = trx
	m.order = append(m.order, trx.ID)
	return trx, nil
}

func (m *MemoryStore) NewSplit(_ context.Context, transactionID, accountID uuid.UUID) (*Split, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.trxs[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if _, ok := m.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	splt := &Split{
		ID:            uuid.New(),
		TransactionID: transactionID,
		AccountID:     accountID,
	}
	trx.Splits = append(trx.Splits, splt)
	m.splits[splt.ID] = splt
	return splt, nil
}

func (m *MemoryStore) UpdateTransaction(_ context.Context, trx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trxs[trx.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	stored.DatePosted = trx.DatePosted
	stored.DateEntered = trx.DateEntered
	stored.Description = trx.Description
	return nil
}

func (m *MemoryStore) UpdateSplit(_ context.Context, splt *Split) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.splits[splt.ID]
	if !ok {
		return ErrSplitNotFound
	}
	if _, ok := m.accounts[splt.AccountID]; !ok {
		return ErrAccountNotFound
	}
	stored.AccountID = splt.AccountID
	stored.Value = splt.Value
	stored.Quantity = splt.Quantity
	stored.Action = splt.Action
	stored.ActionRaw = splt.ActionRaw
	stored.ReconState = splt.ReconState
	stored.Description = splt.Description
	return nil
}

func (m *MemoryStore) RemoveSplit(_ context.Context, transactionID, splitID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.trxs[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	splt, ok := m.splits[splitID]
	if !ok {
		return ErrSplitNotFound
	}
	if splt.TransactionID != transactionID {
		return ErrSplitNotInTransaction
	}
	for i, s := range trx.Splits {
		if s.ID == splitID {
			trx.Splits = append(trx.Splits[:i], trx.Splits[i+1:]...)
			break
		}
	}
	delete(m.splits, splitID)
	return nil
}

func (m *MemoryStore) RemoveTransaction(_ context.Context, transactionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.trxs[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	for _, splt := range trx.Splits {
		delete(m.splits, splt.ID)
	}
	delete(m.trxs, transactionID)
	for i, id := range m.order {
		if id == transactionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
