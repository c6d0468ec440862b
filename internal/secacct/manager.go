package secacct

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/secledger/secledger/internal/ledger"
)

// Manager wraps one investment account (an ASSET-typed node whose
// children are the per-security stock accounts) with convenience
// accessors.
type Manager struct {
	store     ledger.Store
	invstAcct *ledger.Account
}

// NewManager resolves the investment account and checks its type.
func NewManager(ctx context.Context, store ledger.Store, accountID uuid.UUID) (*Manager, error) {
	if accountID == uuid.Nil {
		return nil, ErrUnsetAccountID
	}
	acct, err := store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Type != ledger.AccountTypeAsset {
		return nil, fmt.Errorf("%w: account %s is %s, want %s", ErrWrongAccountType, accountID, acct.Type, ledger.AccountTypeAsset)
	}
	return &Manager{store: store, invstAcct: acct}, nil
}

// InvestmentAccount returns the wrapped account.
func (m *Manager) InvestmentAccount() *ledger.Account {
	return m.invstAcct
}

// ShareAccounts returns all child accounts of the investment account.
func (m *Manager) ShareAccounts(ctx context.Context) ([]*ledger.Account, error) {
	return m.store.ChildAccounts(ctx, m.invstAcct.ID)
}

// ActiveShareAccounts returns the child accounts holding a positive
// balance.
func (m *Manager) ActiveShareAccounts(ctx context.Context) ([]*ledger.Account, error) {
	all, err := m.ShareAccounts(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*ledger.Account, 0, len(all))
	for _, acct := range all {
		if acct.Balance.IsPositive() {
			active = append(active, acct)
		}
	}
	return active, nil
}
