package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the narrow persistence boundary the transaction managers
// work against. Implementations own the entities; callers never
// construct ledger objects themselves but obtain them through the
// New*/lookup operations here.
//
// Store implementations are not required to be safe for concurrent
// use; callers serialize access when sharing one handle.
type Store interface {
	// Lookups. Each fails with the corresponding not-found sentinel
	// when the ID is absent.
	AccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	TransactionByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	SplitByID(ctx context.Context, id uuid.UUID) (*Split, error)

	// Enumeration.
	Transactions(ctx context.Context) ([]*Transaction, error)
	// TransactionsByDateRange returns transactions whose posted date
	// falls within [from, to], inclusive on both ends.
	TransactionsByDateRange(ctx context.Context, from, to time.Time) ([]*Transaction, error)
	Splits(ctx context.Context) ([]*Split, error)
	ChildAccounts(ctx context.Context, parentID uuid.UUID) ([]*Account, error)
	LotsByAccount(ctx context.Context, accountID uuid.UUID) ([]*Lot, error)

	// Mutation.
	NewTransaction(ctx context.Context) (*Transaction, error)
	NewSplit(ctx context.Context, transactionID, accountID uuid.UUID) (*Split, error)
	UpdateTransaction(ctx context.Context, trx *Transaction) error
	UpdateSplit(ctx context.Context, splt *Split) error
	RemoveSplit(ctx context.Context, transactionID, splitID uuid.UUID) error
	RemoveTransaction(ctx context.Context, transactionID uuid.UUID) error
}
