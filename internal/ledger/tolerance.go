package ledger

import "github.com/shopspring/decimal"

// Tolerances holds the two boundary tunables used throughout the
// module: the absolute decimal-equality tolerance and the day-count
// tolerance for date-proximity checks.
type Tolerances struct {
	Value decimal.Decimal
	Days  int
}

// DefaultTolerances returns the stock tuning: half a cent of value
// drift and same-or-adjacent-day date proximity.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Value: decimal.New(5, -3), // 0.005
		Days:  1,
	}
}

// WithinValue reports whether a and b differ by no more than the value
// tolerance.
func (t Tolerances) WithinValue(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(t.Value)
}

// EffectivelyZero reports whether a is within the value tolerance of
// zero.
func (t Tolerances) EffectivelyZero(a decimal.Decimal) bool {
	return a.Abs().LessThanOrEqual(t.Value)
}

// LessThan reports whether a is below b by more than the value
// tolerance.
func (t Tolerances) LessThan(a, b decimal.Decimal) bool {
	return b.Sub(a).GreaterThan(t.Value)
}

// GreaterThan reports whether a is above b by more than the value
// tolerance.
func (t Tolerances) GreaterThan(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThan(t.Value)
}
