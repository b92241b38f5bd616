// Package core provides money parsing and handling utilities.
//
// Monetary values are exact decimals with two fractional digits. They are
// persisted as integer cents and never pass through float64 except when a
// chart needs plot coordinates.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxMoneyIntegerDigits bounds amounts to what a NUMERIC(7,2) column holds.
const MaxMoneyIntegerDigits = 5

var maxMoney = decimal.New(1, MaxMoneyIntegerDigits)

type Money struct {
	d decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromCents converts a stored cent amount.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// ParseMoney parses a user-entered amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. The value must
// be positive, have at most two fractional digits and at most five integer
// digits.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{d: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	if !m.d.Equal(m.d.Truncate(2)) {
		return ErrInvalidAmount
	}
	if m.d.Abs().GreaterThanOrEqual(maxMoney) {
		return ErrInvalidAmount
	}
	return nil
}

// Cents returns the amount in minor units, rounding half-up to two places.
func (m Money) Cents() int64 {
	return m.d.Round(2).Shift(2).IntPart()
}

func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Round2 rounds half-up (away from zero) to two decimal places.
func (m Money) Round2() Money {
	return Money{d: m.d.Round(2)}
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Float64 is for plotting only.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String formats with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.d.StringFixed(2)
}
