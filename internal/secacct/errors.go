package secacct

import "errors"

var (
	// ErrUnsetAccountID indicates a required account ID was left empty.
	ErrUnsetAccountID = errors.New("secacct: unset account ID")
	// ErrWrongAccountType indicates an account does not match its role.
	ErrWrongAccountType = errors.New("secacct: account has wrong type for role")
	// ErrEmptyExpenseList indicates the buy operation got no tax/fee legs.
	ErrEmptyExpenseList = errors.New("secacct: empty expense list")
	// ErrUnsetExpenseEntry indicates a tax/fee leg without an account ID.
	ErrUnsetExpenseEntry = errors.New("secacct: unset expense list entry")
	// ErrNonPositiveShares indicates a share count <= 0.
	ErrNonPositiveShares = errors.New("secacct: number of shares must be positive")
	// ErrNonPositivePrice indicates a stock price <= 0.
	ErrNonPositivePrice = errors.New("secacct: stock price must be positive")
	// ErrNonPositiveExpense indicates a tax/fee amount <= 0 on a buy.
	ErrNonPositiveExpense = errors.New("secacct: expense amount must be positive")
	// ErrInvalidAction indicates a dividend action other than DIVIDEND or DISTRIBUTION.
	ErrInvalidAction = errors.New("secacct: invalid dividend action")
	// ErrNonPositiveFactor indicates a split factor <= 0.
	ErrNonPositiveFactor = errors.New("secacct: split factor must be positive")
	// ErrImplausibleFactor indicates a split factor outside the plausibility band.
	ErrImplausibleFactor = errors.New("secacct: implausible split factor")
	// ErrZeroAddShares indicates an additional-share count of zero.
	ErrZeroAddShares = errors.New("secacct: zero additional shares")
	// ErrImplausibleAddShares indicates an additional-share count outside the plausibility band.
	ErrImplausibleAddShares = errors.New("secacct: implausible number of additional shares")
	// ErrZeroPosition indicates a stock split on an account holding no shares.
	ErrZeroPosition = errors.New("secacct: account holds no shares, cannot split")
	// ErrUnknownSplitMode indicates an unrecognized stock-split input mode.
	ErrUnknownSplitMode = errors.New("secacct: unknown stock split mode")
	// ErrEmptyLot indicates a lot without any splits.
	ErrEmptyLot = errors.New("secacct: lot contains no splits")
)
