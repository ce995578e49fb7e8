package models

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in paise (1/100 of a rupee).
// JSON carries it as a decimal rupee number with at most two fractional digits.
type Money int64

var ErrMoneyPrecision = errors.New("amount has more than two decimal places")

// MoneyFromDecimal converts a rupee amount to paise. It refuses fractions of a paisa
// instead of rounding them away.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	paise := d.Shift(2)
	if !paise.Equal(paise.Truncate(0)) {
		return 0, ErrMoneyPrecision
	}
	if paise.Abs().GreaterThan(decimal.NewFromInt(maxPaise)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Money(paise.IntPart()), nil
}

// ParseMoney parses a rupee string such as "150", "99.5" or "12.25".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d)
}

// Rupees builds a Money from whole rupees.
func Rupees(r int64) Money {
	return Money(r * 100)
}

// maxPaise keeps Σ quantity × price comfortably inside int64.
const maxPaise = 1_000_000_000_000_00

// MaxAmount is the largest amount a request may carry. A payment split of
// three such amounts still sums inside int64.
const MaxAmount Money = maxPaise

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Times multiplies by a line quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = 0
		return nil
	}
	v, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
