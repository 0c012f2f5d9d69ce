package core

// Filter is the set of optional constraints applied to a ledger query.
// A zero Start or End leaves that side of the range open; both bounds are
// inclusive.
type Filter struct {
	Category string
	Start    Date
	End      Date
}

func (f Filter) Validate() error {
	if !f.Start.IsEmpty() && !f.End.IsEmpty() && f.Start.After(f.End.Time) {
		return Invalid("start_date", ErrInvalidRange)
	}
	return nil
}

// Matches reports whether e passes the category and date constraints.
// Owner scope is the caller's responsibility.
func (f Filter) Matches(e Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.Start.IsEmpty() && e.Date.Before(f.Start.Time) {
		return false
	}
	if !f.End.IsEmpty() && e.Date.After(f.End.Time) {
		return false
	}
	return true
}
