package trxmgr

import "errors"

var (
	// ErrMergeImplausible indicates two transactions did not pass the
	// merge plausibility check. Callers may recover by picking another
	// pair; no mutation has happened.
	ErrMergeImplausible = errors.New("trxmgr: transactions did not pass merge plausibility check")
	// ErrMergerNotConfigured indicates a split-surgery merge was
	// invoked before all three IDs were set.
	ErrMergerNotConfigured = errors.New("trxmgr: merger is not fully configured")
	// ErrMergerIDCollision indicates the dier and survivor bank split
	// IDs are identical.
	ErrMergerIDCollision = errors.New("trxmgr: dier and survivor bank split IDs are identical")
	// ErrNilFilter indicates a finder call without a filter.
	ErrNilFilter = errors.New("trxmgr: nil filter")
)
