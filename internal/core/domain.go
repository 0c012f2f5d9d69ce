package core

import (
	"strings"
	"time"
)

const (
	// DateLayout is the wire and storage format of a calendar date.
	DateLayout = "2006-01-02"
	// MonthLayout is the format of a year-month rollup key.
	MonthLayout = "2006-01"

	maxDescriptionLen = 200
	maxCategoryLen    = 100
	maxNameLen        = 100
)

type (
	// Date is a calendar date without time of day, always stored in UTC.
	Date struct {
		time.Time
	}

	// Identity is a registered person with email/password credentials.
	Identity struct {
		ID           int64     `json:"id"`
		Email        string    `json:"email"`
		FirstName    string    `json:"first_name"`
		LastName     string    `json:"last_name"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Expense is a single transaction owned by exactly one identity.
	Expense struct {
		ID          int64  `json:"id"`
		OwnerID     int64  `json:"user_id"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Date        Date   `json:"date"`
		Description string `json:"description,omitempty"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and, for clients sending full timestamps,
// RFC 3339 or a bare local datetime. The time of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty returns true if the date is zero (used for optional bounds)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey truncates the date to its calendar month, formatted YYYY-MM.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the user-supplied fields of an expense. OwnerID and ID are
// assigned by the service and store, not validated here.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if strings.TrimSpace(e.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if len(e.Category) > maxCategoryLen {
		return Invalid("category", ErrCategoryTooLong)
	}
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if len(e.Description) > maxDescriptionLen {
		return Invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

// Validate checks registration fields. The password hash is not inspected.
func (i Identity) Validate() error {
	email := strings.TrimSpace(i.Email)
	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t\r\n") {
		return Invalid("email", ErrInvalidEmail)
	}
	if strings.TrimSpace(i.FirstName) == "" {
		return Invalid("first_name", ErrEmptyName)
	}
	if strings.TrimSpace(i.LastName) == "" {
		return Invalid("last_name", ErrEmptyName)
	}
	if len(i.FirstName) > maxNameLen {
		return Invalid("first_name", ErrNameTooLong)
	}
	if len(i.LastName) > maxNameLen {
		return Invalid("last_name", ErrNameTooLong)
	}
	return nil
}
