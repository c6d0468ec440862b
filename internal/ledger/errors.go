package ledger

import "errors"

var (
	// ErrAccountNotFound indicates no account with the given ID.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrTransactionNotFound indicates no transaction with the given ID.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrSplitNotFound indicates no split with the given ID.
	ErrSplitNotFound = errors.New("ledger: split not found")
	// ErrLotNotFound indicates no lot with the given ID.
	ErrLotNotFound = errors.New("ledger: lot not found")
	// ErrSplitNotInTransaction indicates a split removal addressed to the wrong transaction.
	ErrSplitNotInTransaction = errors.New("ledger: split does not belong to transaction")
)
