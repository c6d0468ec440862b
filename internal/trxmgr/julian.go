package trxmgr

import "time"

// julianDayNumber converts a calendar date to its Julian day number,
// so date distances are plain integer subtraction regardless of month
// lengths or leap years. The date is taken in UTC so the distance does
// not depend on the time value's location.
func julianDayNumber(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	a := (14 - int(m)) / 12
	yy := y + 4800 - a
	mm := int(m) + 12*a - 3
	return int64(d) + int64((153*mm+2)/5) + 365*int64(yy) + int64(yy/4) - int64(yy/100) + int64(yy/400) - 32045
}

// daysApart returns the absolute distance between two dates in days.
func daysApart(a, b time.Time) int64 {
	diff := julianDayNumber(a) - julianDayNumber(b)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
