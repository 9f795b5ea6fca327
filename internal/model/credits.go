// Package model defines domain entities for the application.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Credits is an amount of the service currency in hundredths of a credit.
// Fixed point keeps repeated 0.2 debits exact.
type Credits int64

// Credit amounts used across the ledger.
const (
	// CreditUnit is one whole credit.
	CreditUnit Credits = 100

	// PromptPrice is the fixed price of any catalog prompt.
	PromptPrice = 1 * CreditUnit

	// EnhancementCost is charged per successful enhance or refine call.
	EnhancementCost Credits = 20
)

// MaxCreditAmount bounds any single decimal amount accepted from input.
// Its hundredths fit an int64 with room for balance arithmetic.
const MaxCreditAmount = 1e12

// ErrCreditsOutOfRange is returned for NaN, infinite or oversized amounts.
var ErrCreditsOutOfRange = errors.New("credits amount out of range")

// ParseCredits converts a decimal amount, rejecting values CreditsFromFloat
// cannot represent.
func ParseCredits(f float64) (Credits, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxCreditAmount {
		return 0, ErrCreditsOutOfRange
	}
	return CreditsFromFloat(f), nil
}

// CreditsFromFloat converts a trusted decimal credit amount (e.g. 0.2) into Credits.
func CreditsFromFloat(f float64) Credits {
	return Credits(math.Round(f * float64(CreditUnit)))
}

// WholeCredits returns n whole credits.
func WholeCredits(n int64) Credits {
	return Credits(n) * CreditUnit
}

// Float64 returns the decimal credit amount.
func (c Credits) Float64() float64 {
	return float64(c) / float64(CreditUnit)
}

// String formats the amount without trailing zeros ("20", "19.8").
func (c Credits) String() string {
	return strconv.FormatFloat(c.Float64(), 'f', -1, 64)
}

// MarshalJSON encodes credits as a plain JSON number.
func (c Credits) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number with at most two decimal places of meaning.
func (c *Credits) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid credits amount %s: %w", data, err)
	}
	parsed, err := ParseCredits(f)
	if err != nil {
		return fmt.Errorf("invalid credits amount %s: %w", data, err)
	}
	*c = parsed
	return nil
}

// MaxCredits returns the larger of a and b.
func MaxCredits(a, b Credits) Credits {
	if a > b {
		return a
	}
	return b
}
