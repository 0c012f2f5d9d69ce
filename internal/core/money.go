// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals with two fractional digits. Sums never go
// through binary floating point.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits kept for every amount.
const moneyScale = 2

// Money is a non-negative amount in major units with cent precision.
type Money struct {
	value decimal.Decimal
}

// NewMoneyFromCents builds a Money from an integer number of cents.
func NewMoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -moneyScale)}
}

// MoneyFromDecimal rounds d half-up to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{value: d.Round(moneyScale)}
}

// ParseMoney converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values and non-numeric input are rejected with ErrInvalidAmount; zero is a
// valid amount.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12.345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := MoneyFromDecimal(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// maxCents is the largest amount, in cents, that fits the int64 storage
// representation.
var maxCents = decimal.NewFromInt(math.MaxInt64)

// Validate rejects negative amounts and amounts whose cent count does not fit
// in an int64.
func (m Money) Validate() error {
	if m.value.IsNegative() {
		return ErrInvalidAmount
	}
	if m.value.Shift(moneyScale).Round(0).GreaterThan(maxCents) {
		return ErrInvalidAmount
	}
	return nil
}

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return m.value.Shift(moneyScale).Round(0).IntPart()
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

func (m Money) Add(n Money) Money     { return Money{value: m.value.Add(n.value)} }
func (m Money) Equal(n Money) bool    { return m.value.Equal(n.value) }
func (m Money) IsZero() bool          { return m.value.IsZero() }
func (m Money) LessThan(n Money) bool { return m.value.LessThan(n.value) }

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.value.StringFixed(moneyScale)
}

// MarshalJSON emits a JSON number such as 12.50.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. The bare
// literal null leaves the zero amount.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*m = Money{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
