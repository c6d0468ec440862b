package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates account categories.
type AccountType string

const (
	AccountTypeBank      AccountType = "BANK"
	AccountTypeCash      AccountType = "CASH"
	AccountTypeStock     AccountType = "STOCK"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
)

// Action tags a split with the securities operation it represents.
type Action string

const (
	ActionBuy          Action = "BUY"
	ActionSell         Action = "SELL"
	ActionDividend     Action = "DIVIDEND"
	ActionDistribution Action = "DISTRIBUTION"
	ActionSplit        Action = "SPLIT"
)

// ReconState is the reconciliation state of a split.
type ReconState string

const (
	ReconNotReconciled ReconState = "n"
	ReconCleared       ReconState = "c"
	ReconReconciled    ReconState = "y"
)

// Account is a node of the account tree. Identity is immutable once
// created; balance is maintained by the store.
type Account struct {
	ID       uuid.UUID
	Name     string
	Type     AccountType
	Balance  decimal.Decimal
	ParentID *uuid.UUID
}

// Transaction groups the splits of one double-entry booking. The split
// values must sum to zero within the configured value tolerance.
type Transaction struct {
	ID          uuid.UUID
	DatePosted  time.Time
	DateEntered time.Time
	Description string
	Splits      []*Split
}

// Split is one leg of a transaction. Value is expressed in the
// transaction's currency; Quantity in the account's native unit, which
// differs from Value only for STOCK accounts (share count).
type Split struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Value         decimal.Decimal
	Quantity      decimal.Decimal
	// ActionRaw carries the stored action code verbatim. Not every raw
	// code maps to a typed Action, so Action may be empty while
	// ActionRaw is not.
	ActionRaw   string
	Action      Action
	ReconState  ReconState
	Description string
}

// SetAction sets both the typed action and its raw code.
func (s *Split) SetAction(act Action) {
	s.Action = act
	s.ActionRaw = string(act)
}

// Lot groups the splits of one buy/sell tax lot on a stock account.
// A lot whose split values do not net to zero has unresolved tax basis.
type Lot struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Title     string
	Splits    []*Split
}

// AcctIDAmountPair describes one tax/fee leg of a generated
// transaction: the expense account it posts to and its amount.
type AcctIDAmountPair struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// IsSet reports whether the pair carries a usable account ID.
func (p AcctIDAmountPair) IsSet() bool {
	return p.AccountID != uuid.Nil
}
