package trxmgr

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// SplitFilter is a reusable bag of optional split-level criteria.
// Nil/zero fields do not constrain a match. Range checks compare with
// the ledger's value tolerance rather than exactly.
type SplitFilter struct {
	Action     *ledger.Action
	ReconState *ledger.ReconState

	// AccountID constrains to one account; uuid.Nil means unset.
	AccountID uuid.UUID

	AccountType *ledger.AccountType

	ValueFrom *decimal.Decimal
	ValueTo   *decimal.Decimal
	// ValueAbs compares the absolute value, making sign-insensitive
	// ranges expressible.
	ValueAbs bool

	QuantityFrom *decimal.Decimal
	QuantityTo   *decimal.Decimal
	QuantityAbs  bool

	// Substring match against the split description; blank means unset.
	DescrPart string
}

// Reset returns the filter to its match-everything state.
func (f *SplitFilter) Reset() {
	f.Action = nil
	f.ReconState = nil
	f.AccountID = uuid.Nil
	f.AccountType = nil
	f.ValueFrom = nil
	f.ValueTo = nil
	f.ValueAbs = false
	f.QuantityFrom = nil
	f.QuantityTo = nil
	f.QuantityAbs = false
	f.DescrPart = ""
}

// Matches evaluates all set criteria against the split.
func (f *SplitFilter) Matches(ctx context.Context, accounts AccountResolver, tol ledger.Tolerances, splt *ledger.Split) (bool, error) {
	if splt == nil {
		return false, nil
	}

	if f.Action != nil {
		// Raw action codes are not all mapped to typed values, so an
		// empty raw string disqualifies before the typed comparison.
		if splt.ActionRaw == "" {
			return false, nil
		}
		if splt.Action != *f.Action {
			return false, nil
		}
	}

	if f.ReconState != nil {
		if splt.ReconState == "" {
			return false, nil
		}
		if splt.ReconState != *f.ReconState {
			return false, nil
		}
	}

	if f.AccountID != uuid.Nil && splt.AccountID != f.AccountID {
		return false, nil
	}

	if f.AccountType != nil {
		acct, err := accounts.AccountByID(ctx, splt.AccountID)
		if err != nil {
			return false, err
		}
		if acct.Type != *f.AccountType {
			return false, nil
		}
	}

	if !inRange(splt.Value, f.ValueFrom, f.ValueTo, f.ValueAbs, tol) {
		return false, nil
	}
	if !inRange(splt.Quantity, f.QuantityFrom, f.QuantityTo, f.QuantityAbs, tol) {
		return false, nil
	}

	if part := strings.TrimSpace(f.DescrPart); part != "" {
		if !strings.Contains(splt.Description, part) {
			return false, nil
		}
	}

	return true, nil
}

func inRange(v decimal.Decimal, from, to *decimal.Decimal, abs bool, tol ledger.Tolerances) bool {
	if abs && v.IsNegative() {
		v = v.Neg()
	}
	if from != nil && tol.LessThan(v, *from) {
		return false
	}
	if to != nil && tol.GreaterThan(v, *to) {
		return false
	}
	return true
}
