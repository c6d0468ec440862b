package trxmgr

import (
	"context"
	"log/slog"
	"time"

	"github.com/secledger/secledger/internal/ledger"
)

// Date bounds substituted for unset posted-date ends when the store's
// date-range enumeration is used as a pre-filter.
var (
	earliestPostDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestPostDate   = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Finder evaluates filters against the store's transactions and
// splits. Read-only.
type Finder struct {
	store  ledger.Store
	tol    ledger.Tolerances
	logger *slog.Logger
}

// NewFinder wires a finder to a store.
func NewFinder(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{store: store, tol: tol, logger: logger}
}

// FindTransactions returns the transactions matching the filter, in
// store order. When a posted-date bound is set, the candidate set is
// pre-narrowed by the store's date-range enumeration and the in-filter
// date check is skipped.
func (f *Finder) FindTransactions(ctx context.Context, flt *TransactionFilter, withSplits bool, logic SplitLogic) ([]*ledger.Transaction, error) {
	if flt == nil {
		return nil, ErrNilFilter
	}

	var (
		cands []*ledger.Transaction
		err   error
	)
	eval := *flt
	if flt.HasPostedDateBound() {
		from := earliestPostDate
		to := latestPostDate
		if flt.DatePostedFrom != nil {
			from = *flt.DatePostedFrom
		}
		if flt.DatePostedTo != nil {
			to = *flt.DatePostedTo
		}
		cands, err = f.store.TransactionsByDateRange(ctx, from, to)
		eval.DateAlreadyFiltered = true
	} else {
		cands, err = f.store.Transactions(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := make([]*ledger.Transaction, 0, len(cands))
	for _, trx := range cands {
		ok, err := eval.Matches(ctx, f.store, f.tol, trx, withSplits, logic)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, trx)
		}
	}

	f.logger.Debug("transaction search done",
		slog.Int("candidates", len(cands)),
		slog.Int("matched", len(result)))
	return result, nil
}

// FindSplits returns the splits matching the filter. There is no date
// pre-filter for splits: all splits in the store are scanned.
func (f *Finder) FindSplits(ctx context.Context, flt *SplitFilter) ([]*ledger.Split, error) {
	if flt == nil {
		return nil, ErrNilFilter
	}

	cands, err := f.store.Splits(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*ledger.Split, 0, len(cands))
	for _, splt := range cands {
		ok, err := flt.Matches(ctx, f.store, f.tol, splt)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, splt)
		}
	}

	f.logger.Debug("split search done",
		slog.Int("candidates", len(cands)),
		slog.Int("matched", len(result)))
	return result, nil
}
