package secacct

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secledger/secledger/internal/ledger"
)

// StockSplitMode selects how a stock split is specified.
type StockSplitMode string

const (
	// StockSplitByFactor specifies the split as a multiplier on the
	// current position, e.g. 2 for a 2-for-1 split, 0.25 for a
	// 1-for-4 reverse split.
	StockSplitByFactor StockSplitMode = "FACTOR"
	// StockSplitByAddShares specifies the split as a signed number of
	// additional shares; negative means a reverse split.
	StockSplitByAddShares StockSplitMode = "ADD_SHARES"
)

// Limits bounds stock-split inputs to plausible ranges. The bands are
// deliberately much narrower than any technical constraint: inputs
// beyond them are overwhelmingly typos or bad bank data.
type Limits struct {
	SplitFactorMin decimal.Decimal
	SplitFactorMax decimal.Decimal
	AddSharesMin   decimal.Decimal
	AddSharesMax   decimal.Decimal
}

// DefaultLimits returns the stock plausibility bands: factors in
// [1/20, 20], absolute additional shares in [1, 99999].
func DefaultLimits() Limits {
	return Limits{
		SplitFactorMin: decimal.New(5, -2),
		SplitFactorMax: decimal.NewFromInt(20),
		AddSharesMin:   decimal.NewFromInt(1),
		AddSharesMax:   decimal.NewFromInt(99999),
	}
}

// Generator synthesizes balanced securities-account transactions
// against a ledger store. All inputs are validated before any store
// mutation; a validation failure never leaves partial state behind.
type Generator struct {
	store  ledger.Store
	tol    ledger.Tolerances
	limits Limits
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator wires a generator to a store.
func NewGenerator(store ledger.Store, tol ledger.Tolerances, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:  store,
		tol:    tol,
		limits: DefaultLimits(),
		logger: logger,
		now:    time.Now,
	}
}

// WithLimits overrides the plausibility bands.
func (g *Generator) WithLimits(limits Limits) {
	g.limits = limits
}

// WithNow overrides the wall clock used for entered dates.
func (g *Generator) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// BuyInput describes a stock purchase to synthesize.
type BuyInput struct {
	StockAccountID  uuid.UUID
	Expenses        []ledger.AcctIDAmountPair
	OffsetAccountID uuid.UUID
	Shares          decimal.Decimal
	Price           decimal.Decimal
	PostDate        time.Time
	Description     string
}

// Validate checks the input without touching the store.
func (in BuyInput) Validate() error {
	if in.StockAccountID == uuid.Nil || in.OffsetAccountID == uuid.Nil {
		return ErrUnsetAccountID
	}
	if len(in.Expenses) == 0 {
		return ErrEmptyExpenseList
	}
	for _, pair := range in.Expenses {
		if !pair.IsSet() {
			return ErrUnsetExpenseEntry
		}
		if !pair.Amount.IsPositive() {
			return ErrNonPositiveExpense
		}
	}
	if !in.Shares.IsPositive() {
		return ErrNonPositiveShares
	}
	if !in.Price.IsPositive() {
		return ErrNonPositivePrice
	}
	return nil
}

// GenBuyStock generates a balanced buy transaction: one offsetting
// split debited for the gross amount, one stock split for the net
// amount carrying the share quantity and BUY action, and one split per
// tax/fee leg.
func (g *Generator) GenBuyStock(ctx context.Context, in BuyInput) (*ledger.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	stockAcct, err := g.accountOfType(ctx, in.StockAccountID, ledger.AccountTypeStock)
	if err != nil {
		return nil, err
	}
	for _, pair := range in.Expenses {
		if _, err := g.accountOfType(ctx, pair.AccountID, ledger.AccountTypeExpense); err != nil {
			return nil, err
		}
	}
	offsetAcct, err := g.accountOfType(ctx, in.OffsetAccountID, ledger.AccountTypeBank)
	if err != nil {
		return nil, err
	}

	amtNet := in.Shares.Mul(in.Price)
	amtGross := amtNet
	for _, pair := range in.Expenses {
		amtGross = amtGross.Add(pair.Amount)
	}
	g.logger.Debug("buy amounts computed",
		slog.String("net", amtNet.String()),
		slog.String("gross", amtGross.String()))

	trx, err := g.store.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	trx.Description = in.Description

	offsetSplt, err := g.store.NewSplit(ctx, trx.ID, offsetAcct.ID)
	if err != nil {
		return nil, err
	}
	offsetSplt.Value = amtGross.Neg()
	offsetSplt.Quantity = amtGross.Neg()
	if err := g.store.UpdateSplit(ctx, offsetSplt); err != nil {
		return nil, err
	}

	stockSplt, err := g.store.NewSplit(ctx, trx.ID, stockAcct.ID)
	if err != nil {
		return nil, err
	}
	stockSplt.Value = amtNet
	stockSplt.Quantity = in.Shares
	stockSplt.SetAction(ledger.ActionBuy)
	if err := g.store.UpdateSplit(ctx, stockSplt); err != nil {
		return nil, err
	}

	for _, pair := range in.Expenses {
		expSplt, err := g.store.NewSplit(ctx, trx.ID, pair.AccountID)
		if err != nil {
			return nil, err
		}
		expSplt.Value = pair.Amount
		expSplt.Quantity = pair.Amount
		if err := g.store.UpdateSplit(ctx, expSplt); err != nil {
			return nil, err
		}
	}

	trx.DatePosted = in.PostDate
	trx.DateEntered = g.now()
	if err := g.store.UpdateTransaction(ctx, trx); err != nil {
		return nil, err
	}

	g.logger.Info("generated buy transaction", slog.String("transaction_id", trx.ID.String()))
	return trx, nil
}

// GenBuyStockSingleFee is the single tax/fee convenience variant of
// GenBuyStock.
func (g *Generator) GenBuyStockSingleFee(ctx context.Context, in BuyInput, feeAccountID uuid.UUID, fee decimal.Decimal) (*ledger.Transaction, error) {
	in.Expenses = []ledger.AcctIDAmountPair{{AccountID: feeAccountID, Amount: fee}}
	return g.GenBuyStock(ctx, in)
}

// DividendInput describes a dividend or distribution posting. Gross
// and fee amounts may be negative: reversal postings are legitimate.
// An empty expense list is valid too, e.g. payouts below a tax
// exemption threshold.
type DividendInput struct {
	StockAccountID  uuid.UUID
	IncomeAccountID uuid.UUID
	Expenses        []ledger.AcctIDAmountPair
	OffsetAccountID uuid.UUID
	Action          ledger.Action
	Gross           decimal.Decimal
	PostDate        time.Time
	Description     string
}

// Validate checks the input without touching the store.
func (in DividendInput) Validate() error {
	if in.StockAccountID == uuid.Nil || in.IncomeAccountID == uuid.Nil || in.OffsetAccountID == uuid.Nil {
		return ErrUnsetAccountID
	}
	for _, pair := range in.Expenses {
		if !pair.IsSet() {
			return ErrUnsetExpenseEntry
		}
	}
	if in.Action != ledger.ActionDividend && in.Action != ledger.ActionDistribution {
		return ErrInvalidAction
	}
	return nil
}

// GenDividDistrib generates a balanced dividend/distribution
// transaction: a zero-value stock split carrying the action tag, an
// offsetting split for the net amount, an income split for the negated
// gross amount, and one split per tax/fee leg.
func (g *Generator) GenDividDistrib(ctx context.Context, in DividendInput) (*ledger.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	stockAcct, err := g.accountOfType(ctx, in.StockAccountID, ledger.AccountTypeStock)
	if err != nil {
		return nil, err
	}
	incomeAcct, err := g.accountOfType(ctx, in.IncomeAccountID, ledger.AccountTypeIncome)
	if err != nil {
		return nil, err
	}
	for _, pair := range in.Expenses {
		if _, err := g.accountOfType(ctx, pair.AccountID, ledger.AccountTypeExpense); err != nil {
			return nil, err
		}
	}
	offsetAcct, err := g.accountOfType(ctx, in.OffsetAccountID, ledger.AccountTypeBank)
	if err != nil {
		return nil, err
	}

	expensesSum := decimal.Zero
	for _, pair := range in.Expenses {
		expensesSum = expensesSum.Add(pair.Amount)
	}
	net := in.Gross.Sub(expensesSum)
	g.logger.Debug("dividend amounts computed",
		slog.String("gross", in.Gross.String()),
		slog.String("expenses", expensesSum.String()),
		slog.String("net", net.String()))

	trx, err := g.store.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	trx.Description = in.Description

	// Placeholder leg on the stock account: moves no value, only
	// carries the action tag.
	stockSplt, err := g.store.NewSplit(ctx, trx.ID, stockAcct.ID)
	if err != nil {
		return nil, err
	}
	stockSplt.Value = decimal.Zero
	stockSplt.Quantity = decimal.Zero
	stockSplt.SetAction(in.Action)
	if err := g.store.UpdateSplit(ctx, stockSplt); err != nil {
		return nil, err
	}

	offsetSplt, err := g.store.NewSplit(ctx, trx.ID, offsetAcct.ID)
	if err != nil {
		return nil, err
	}
	offsetSplt.Value = net
	offsetSplt.Quantity = net
	if err := g.store.UpdateSplit(ctx, offsetSplt); err != nil {
		return nil, err
	}

	incomeSplt, err := g.store.NewSplit(ctx, trx.ID, incomeAcct.ID)
	if err != nil {
		return nil, err
	}
	incomeSplt.Value = in.Gross.Neg()
	incomeSplt.Quantity = in.Gross.Neg()
	if err := g.store.UpdateSplit(ctx, incomeSplt); err != nil {
		return nil, err
	}

	for _, pair := range in.Expenses {
		expSplt, err := g.store.NewSplit(ctx, trx.ID, pair.AccountID)
		if err != nil {
			return nil, err
		}
		expSplt.Value = pair.Amount
		expSplt.Quantity = pair.Amount
		if err := g.store.UpdateSplit(ctx, expSplt); err != nil {
			return nil, err
		}
	}

	trx.DatePosted = in.PostDate
	trx.DateEntered = g.now()
	if err := g.store.UpdateTransaction(ctx, trx); err != nil {
		return nil, err
	}

	g.logger.Info("generated dividend transaction",
		slog.String("transaction_id", trx.ID.String()),
		slog.String("action", string(in.Action)))
	return trx, nil
}

// GenDividDistribSingleFee is the single tax/fee convenience variant
// of GenDividDistrib.
func (g *Generator) GenDividDistribSingleFee(ctx context.Context, in DividendInput, feeAccountID uuid.UUID, fee decimal.Decimal) (*ledger.Transaction, error) {
	in.Expenses = []ledger.AcctIDAmountPair{{AccountID: feeAccountID, Amount: fee}}
	return g.GenDividDistrib(ctx, in)
}

// StockSplitInput describes a stock (reverse) split. Amount is a
// factor or a signed additional-share count depending on Mode.
type StockSplitInput struct {
	StockAccountID uuid.UUID
	Mode           StockSplitMode
	Amount         decimal.Decimal
	PostDate       time.Time
	Description    string
}

// GenStockSplit dispatches on the input mode.
func (g *Generator) GenStockSplit(ctx context.Context, in StockSplitInput) (*ledger.Transaction, error) {
	switch in.Mode {
	case StockSplitByFactor:
		return g.GenStockSplitByFactor(ctx, in.StockAccountID, in.Amount, in.PostDate, in.Description)
	case StockSplitByAddShares:
		return g.GenStockSplitByAddShares(ctx, in.StockAccountID, in.Amount, in.PostDate, in.Description)
	}
	return nil, ErrUnknownSplitMode
}

// GenStockSplitByFactor converts the factor to an additional-share
// count using the account's current position and delegates to
// GenStockSplitByAddShares.
func (g *Generator) GenStockSplitByFactor(ctx context.Context, stockAccountID uuid.UUID, factor decimal.Decimal, postDate time.Time, descr string) (*ledger.Transaction, error) {
	if stockAccountID == uuid.Nil {
		return nil, ErrUnsetAccountID
	}
	if !factor.IsPositive() {
		return nil, ErrNonPositiveFactor
	}
	if factor.LessThan(g.limits.SplitFactorMin) {
		return nil, fmt.Errorf("%w: %s below %s", ErrImplausibleFactor, factor, g.limits.SplitFactorMin)
	}
	if factor.GreaterThan(g.limits.SplitFactorMax) {
		return nil, fmt.Errorf("%w: %s above %s", ErrImplausibleFactor, factor, g.limits.SplitFactorMax)
	}

	stockAcct, err := g.accountOfType(ctx, stockAccountID, ledger.AccountTypeStock)
	if err != nil {
		return nil, err
	}

	sharesOld := stockAcct.Balance
	if sharesOld.IsZero() {
		return nil, ErrZeroPosition
	}
	sharesNew := sharesOld.Mul(factor)
	addShares := sharesNew.Sub(sharesOld)
	g.logger.Debug("stock split factor converted",
		slog.String("shares_old", sharesOld.String()),
		slog.String("shares_new", sharesNew.String()),
		slog.String("add_shares", addShares.String()))

	return g.GenStockSplitByAddShares(ctx, stockAccountID, addShares, postDate, descr)
}

// GenStockSplitByAddShares generates a stock-split transaction with a
// single zero-value split whose quantity is the signed additional-share
// count. Negative counts express reverse splits; a count driving the
// position below zero is not rejected here.
func (g *Generator) GenStockSplitByAddShares(ctx context.Context, stockAccountID uuid.UUID, addShares decimal.Decimal, postDate time.Time, descr string) (*ledger.Transaction, error) {
	if stockAccountID == uuid.Nil {
		return nil, ErrUnsetAccountID
	}
	if addShares.IsZero() {
		return nil, ErrZeroAddShares
	}
	addSharesAbs := addShares.Abs()
	if addSharesAbs.LessThan(g.limits.AddSharesMin) {
		return nil, fmt.Errorf("%w: abs. %s below %s", ErrImplausibleAddShares, addSharesAbs, g.limits.AddSharesMin)
	}
	if addSharesAbs.GreaterThan(g.limits.AddSharesMax) {
		return nil, fmt.Errorf("%w: abs. %s above %s", ErrImplausibleAddShares, addSharesAbs, g.limits.AddSharesMax)
	}

	stockAcct, err := g.accountOfType(ctx, stockAccountID, ledger.AccountTypeStock)
	if err != nil {
		return nil, err
	}

	sharesOld := stockAcct.Balance
	if sharesOld.IsZero() {
		return nil, ErrZeroPosition
	}
	g.logger.Debug("stock split shares",
		slog.String("shares_old", sharesOld.String()),
		slog.String("add_shares", addShares.String()),
		slog.String("factor", sharesOld.Add(addShares).Div(sharesOld).String()))

	trx, err := g.store.NewTransaction(ctx)
	if err != nil {
		return nil, err
	}
	trx.Description = descr

	splt, err := g.store.NewSplit(ctx, trx.ID, stockAcct.ID)
	if err != nil {
		return nil, err
	}
	splt.Value = decimal.Zero
	splt.Quantity = addShares
	splt.SetAction(ledger.ActionSplit)
	splt.Description = fmt.Sprintf("stock split, generated %s", g.now().Format(time.RFC3339))
	if err := g.store.UpdateSplit(ctx, splt); err != nil {
		return nil, err
	}

	trx.DatePosted = postDate
	trx.DateEntered = g.now()
	if err := g.store.UpdateTransaction(ctx, trx); err != nil {
		return nil, err
	}

	g.logger.Info("generated stock split transaction", slog.String("transaction_id", trx.ID.String()))
	return trx, nil
}

// accountOfType loads an account and checks its role.
func (g *Generator) accountOfType(ctx context.Context, id uuid.UUID, want ledger.AccountType) (*ledger.Account, error) {
	acct, err := g.store.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct.Type != want {
		return nil, fmt.Errorf("%w: account %s is %s, want %s", ErrWrongAccountType, id, acct.Type, want)
	}
	return acct, nil
}
