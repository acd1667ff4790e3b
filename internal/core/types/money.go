// Package types holds the value types shared by the ledger and its collaborators.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount. Never use float64 for money.
type Money = decimal.Decimal

// ParseMoney parses a decimal string such as "12.50".
func ParseMoney(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney parses s and panics on failure. Constants and tests only.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// ZeroMoney returns 0.
func ZeroMoney() Money {
	return decimal.Zero
}

// LineValue returns unitCost * |q|, rounded to 4 places.
func LineValue(unitCost Money, q Quantity) Money {
	return unitCost.Mul(q.Abs().Decimal()).Round(4)
}
