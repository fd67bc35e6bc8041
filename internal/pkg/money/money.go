package money

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Fixed scales for persisted monetary values.
const (
	ScaleCents    int32 = 2 // wallet balances and transfer amounts
	ScaleInterest int32 = 8 // interest-account balances and interest amounts
	ScaleRate     int32 = 6 // annual interest rate
)

// DivisionPrecision is the number of digits carried through division.
// All engines assume this is in effect before any calculation runs.
const DivisionPrecision = 20

var initOnce sync.Once

// Init applies the process-wide decimal settings. Must run once at startup,
// before any engine performs arithmetic; later calls are no-ops so the
// settings can never be flipped mid-process.
func Init() {
	initOnce.Do(func() {
		decimal.DivisionPrecision = DivisionPrecision
	})
}

// Parse reads a decimal from its canonical textual form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Fixed renders d with exactly scale fractional digits, rounding half-up.
// This is the canonical form persisted to the database.
func Fixed(d decimal.Decimal, scale int32) string {
	return d.StringFixed(scale)
}

// Round rounds d to scale fractional digits, half-up.
func Round(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}

// IsNegative reports whether d is strictly below zero.
func IsNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}

// IsPositive reports whether d is strictly above zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}
