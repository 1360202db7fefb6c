// Package money implements fixed-point currency arithmetic for the settlement
// engine. Amounts are carried as int64 minor units (cents) internally and as
// decimal strings with exactly two fractional digits at API and gateway
// boundaries. Binary floats are never used.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const fractionalDigits = 2

var centFactor = decimal.NewFromInt(100)

// FormatCents renders minor units as a decimal string with two fractional
// digits, e.g. 3150 -> "31.50".
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(centFactor).StringFixed(fractionalDigits)
}

// ParseAmount converts a decimal string into minor units. Inputs with more
// than two fractional digits are rejected rather than silently rounded.
func ParseAmount(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	scaled := d.Mul(centFactor)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d fractional digits", value, fractionalDigits)
	}
	return scaled.IntPart(), nil
}

// Share computes weight/totalWeight of total, rounded half-up to a cent.
// Callers splitting a total across lines must use Prorate so the remainder
// lands on the final line.
func Share(total, weight, totalWeight int64) int64 {
	if totalWeight == 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(weight)).
		Div(decimal.NewFromInt(totalWeight)).
		Round(0).
		IntPart()
}

// Prorate splits total across the given weights. Every line but the last gets
// its rounded share; the last line absorbs the rounding remainder so the parts
// always sum exactly to total. A zero total weight distributes equally.
func Prorate(total int64, weights []int64) []int64 {
	if len(weights) == 0 {
		return nil
	}
	parts := make([]int64, len(weights))
	if len(weights) == 1 {
		parts[0] = total
		return parts
	}

	var totalWeight int64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return equalSplit(total, len(weights))
	}

	var allocated int64
	for i, w := range weights[:len(weights)-1] {
		parts[i] = Share(total, w, totalWeight)
		allocated += parts[i]
	}
	parts[len(parts)-1] = total - allocated
	return parts
}

// ApplyBasisPoints returns amount*bps/10000 rounded half-up to a cent. Used
// for the platform fee.
func ApplyBasisPoints(amount, bps int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

func equalSplit(total int64, n int) []int64 {
	parts := make([]int64, n)
	var allocated int64
	for i := 0; i < n-1; i++ {
		parts[i] = Share(total, 1, int64(n))
		allocated += parts[i]
	}
	parts[n-1] = total - allocated
	return parts
}
