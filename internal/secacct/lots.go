package secacct

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// LotChecker verifies that buy/sell lots on stock accounts are flat,
// i.e. their split values net to zero within tolerance.
type LotChecker struct {
	store  ledger.Store
	tol    ledger.Tolerances
	logger *slog.Logger
}

// NewLotChecker wires a checker to a store.
func NewLotChecker(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *LotChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LotChecker{store: store, tol: tol, logger: logger}
}

// IsLotOK reports whether the lot's split values sum to zero within
// tolerance. A lot without splits is never OK; that case is logged,
// not an error.
func (c *LotChecker) IsLotOK(lot *ledger.Lot) bool {
	if len(lot.Splits) == 0 {
		c.logger.Warn("lot contains no splits",
			slog.String("lot_id", lot.ID.String()),
			slog.String("title", lot.Title))
		return false
	}

	sum := decimal.Zero
	for _, splt := range lot.Splits {
		sum = sum.Add(splt.Value)
	}

	if c.tol.EffectivelyZero(sum) {
		return true
	}
	c.logger.Warn("lot does not net to zero",
		slog.String("lot_id", lot.ID.String()),
		slog.String("title", lot.Title),
		slog.String("sum", sum.String()))
	return false
}

// AreLotsOK reports whether every lot on the given stock account passes
// IsLotOK. Calling it for a non-stock account is an invalid argument.
func (c *LotChecker) AreLotsOK(ctx context.Context, accountID uuid.UUID) (bool, error) {
	acct, err := c.store.AccountByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if acct.Type != ledger.AccountTypeStock {
		return false, fmt.Errorf("%w: account %s is %s, want %s", ErrWrongAccountType, accountID, acct.Type, ledger.AccountTypeStock)
	}

	lots, err := c.store.LotsByAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	c.logger.Debug("checking lots", slog.String("account_id", accountID.String()), slog.Int("count", len(lots)))

	ok := true
	for _, lot := range lots {
		if !c.IsLotOK(lot) {
			ok = false
		}
	}
	if !ok {
		c.logger.Warn("one or more lots are not OK", slog.String("account_id", accountID.String()))
	}
	return ok, nil
}
