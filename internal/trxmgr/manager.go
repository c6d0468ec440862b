package trxmgr

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// AccountResolver is the slice of the store the filters and sanity
// checks need: account lookup only.
type AccountResolver interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error)
}

// Manager bundles the transaction-level consistency checks shared by
// the merger strategies and usable standalone.
type Manager struct {
	store  ledger.Store
	tol    ledger.Tolerances
	logger *slog.Logger
}

// NewManager wires a manager to a store.
func NewManager(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, tol: tol, logger: logger}
}

// IsSaneID resolves the transaction and applies IsSane.
func (m *Manager) IsSaneID(ctx context.Context, trxID uuid.UUID) (bool, error) {
	trx, err := m.store.TransactionByID(ctx, trxID)
	if err != nil {
		return false, err
	}
	return m.IsSane(trx), nil
}

// IsSane reports whether the transaction has at least one split and
// its split values sum to zero within the value tolerance.
func (m *Manager) IsSane(trx *ledger.Transaction) bool {
	if len(trx.Splits) == 0 {
		return false
	}

	sum := decimal.Zero
	for _, splt := range trx.Splits {
		sum = sum.Add(splt.Value)
	}

	if !m.tol.EffectivelyZero(sum) {
		m.logger.Warn("transaction split values do not balance",
			slog.String("transaction_id", trx.ID.String()),
			slog.String("sum", sum.String()))
		return false
	}
	return true
}

// HasSplitOfAccountType reports whether any split of the transaction is
// bound to an account of the given type.
func (m *Manager) HasSplitOfAccountType(ctx context.Context, trx *ledger.Transaction, acctType ledger.AccountType) (bool, error) {
	for _, splt := range trx.Splits {
		acct, err := m.store.AccountByID(ctx, splt.AccountID)
		if err != nil {
			return false, err
		}
		if acct.Type == acctType {
			return true, nil
		}
	}
	return false, nil
}

// SplitsOfAccountType returns the splits of the transaction bound to
// accounts of the given type, in transaction order.
func (m *Manager) SplitsOfAccountType(ctx context.Context, trx *ledger.Transaction, acctType ledger.AccountType) ([]*ledger.Split, error) {
	var out []*ledger.Split
	for _, splt := range trx.Splits {
		acct, err := m.store.AccountByID(ctx, splt.AccountID)
		if err != nil {
			return nil, err
		}
		if acct.Type == acctType {
			out = append(out, splt)
		}
	}
	return out, nil
}
