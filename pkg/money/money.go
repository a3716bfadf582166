// Package money converts between integer minor units (cents) and decimal
// strings with two fractional digits.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const scale = 2

var (
	ErrEmpty     = errors.New("amount required")
	ErrPrecision = errors.New("amount supports up to 2 decimals")
	ErrRange     = errors.New("amount out of range")
)

// FormatMinor renders minor units as a fixed two-decimal string, e.g. 1015 -> "10.15".
func FormatMinor(minor int64) string {
	return decimal.New(minor, -scale).StringFixed(scale)
}

// ParseMinor converts a decimal string like "10.15" or "-3" into minor units.
func ParseMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmpty
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, ErrPrecision
	}

	if !shifted.BigInt().IsInt64() {
		return 0, ErrRange
	}

	return shifted.IntPart(), nil
}

// WeightedAverage returns the unit cost basis after adding addUnits bought at
// addPrice to heldUnits held at heldAvg. Prices are minor units per unit.
func WeightedAverage(heldUnits int64, heldAvg decimal.Decimal, addUnits int64, addPrice int64) decimal.Decimal {
	total := heldUnits + addUnits
	if total <= 0 {
		return decimal.Zero
	}

	cost := heldAvg.Mul(decimal.NewFromInt(heldUnits)).
		Add(decimal.NewFromInt(addPrice).Mul(decimal.NewFromInt(addUnits)))

	return cost.DivRound(decimal.NewFromInt(total), 4)
}
