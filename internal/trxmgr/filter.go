package trxmgr

import (
	"context"
	"strings"
	"time"

	"github.com/secledger/secledger/internal/ledger"
)

// SplitLogic selects how split-level criteria combine over a
// transaction's splits.
type SplitLogic string

const (
	// SplitLogicAnd requires every split to satisfy the split filter.
	SplitLogicAnd SplitLogic = "AND"
	// SplitLogicOr requires at least one split to satisfy it.
	SplitLogicOr SplitLogic = "OR"
)

// TransactionFilter is a reusable bag of optional transaction-level
// criteria. Nil/zero fields do not constrain a match, so the zero
// value matches every transaction. The same object may be reconfigured
// and reused across queries via Reset.
type TransactionFilter struct {
	DatePostedFrom  *time.Time
	DatePostedTo    *time.Time
	DateEnteredFrom *time.Time
	DateEnteredTo   *time.Time

	// Split-count bounds; zero means unset.
	SplitCountFrom int
	SplitCountTo   int

	// Case-insensitive substring match against the description;
	// blank means unset.
	DescrPart string

	// DateAlreadyFiltered asserts the posted-date bounds were applied
	// upstream (e.g. by the finder's date-indexed pre-filter), so the
	// check is skipped here. It never changes the outcome, only
	// avoids recomputation.
	DateAlreadyFiltered bool

	Split SplitFilter
}

// Reset returns the filter to its match-everything state.
func (f *TransactionFilter) Reset() {
	f.DatePostedFrom = nil
	f.DatePostedTo = nil
	f.DateEnteredFrom = nil
	f.DateEnteredTo = nil
	f.SplitCountFrom = 0
	f.SplitCountTo = 0
	f.DescrPart = ""
	f.DateAlreadyFiltered = false
	f.Split.Reset()
}

// HasPostedDateBound reports whether either posted-date bound is set.
func (f *TransactionFilter) HasPostedDateBound() bool {
	return f.DatePostedFrom != nil || f.DatePostedTo != nil
}

// Matches evaluates the transaction-level criteria and, when
// withSplits is true, the split filter combined under the given logic.
func (f *TransactionFilter) Matches(ctx context.Context, accounts AccountResolver, tol ledger.Tolerances, trx *ledger.Transaction, withSplits bool, logic SplitLogic) (bool, error) {
	if trx == nil {
		return false, nil
	}

	if !f.DateAlreadyFiltered {
		if f.DatePostedFrom != nil && trx.DatePosted.Before(*f.DatePostedFrom) {
			return false, nil
		}
		if f.DatePostedTo != nil && trx.DatePosted.After(*f.DatePostedTo) {
			return false, nil
		}
	}

	if f.DateEnteredFrom != nil && trx.DateEntered.Before(*f.DateEnteredFrom) {
		return false, nil
	}
	if f.DateEnteredTo != nil && trx.DateEntered.After(*f.DateEnteredTo) {
		return false, nil
	}

	if f.SplitCountFrom != 0 && len(trx.Splits) < f.SplitCountFrom {
		return false, nil
	}
	if f.SplitCountTo != 0 && len(trx.Splits) > f.SplitCountTo {
		return false, nil
	}

	if part := strings.TrimSpace(f.DescrPart); part != "" {
		if !strings.Contains(strings.ToLower(trx.Description), strings.ToLower(part)) {
			return false, nil
		}
	}

	if withSplits {
		return f.splitsMatch(ctx, accounts, tol, trx, logic)
	}
	return true, nil
}

func (f *TransactionFilter) splitsMatch(ctx context.Context, accounts AccountResolver, tol ledger.Tolerances, trx *ledger.Transaction, logic SplitLogic) (bool, error) {
	switch logic {
	case SplitLogicAnd:
		for _, splt := range trx.Splits {
			ok, err := f.Split.Matches(ctx, accounts, tol, splt)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case SplitLogicOr:
		for _, splt := range trx.Splits {
			ok, err := f.Split.Matches(ctx, accounts, tol, splt)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return true, nil
}
