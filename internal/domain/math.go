package domain

import (
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
)

// StellarPrecision is the number of decimal places in a stroop amount.
const StellarPrecision = 7

const (
	// Scale is the fixed-point base of balances and prices (1 unit = 10^7 stroops).
	Scale uint64 = 10_000_000
	// BpsDenominator is 100% in basis points.
	BpsDenominator uint64 = 10_000
)

// MulDiv returns a*b/d with truncating division and a 128-bit intermediate product.
// A zero divisor or a quotient that does not fit in 64 bits returns ErrOverflow.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// AbsDiff returns |a-b| for unsigned values.
func AbsDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// StroopsDecimal converts a stroop amount into its decimal unit value.
func StroopsDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -StellarPrecision)
}

// FormatStroops renders a stroop amount with Stellar precision, stripping trailing zeros.
func FormatStroops(v uint64) string {
	return formatStellar(StroopsDecimal(v))
}

// ParseStroops parses a decimal unit string ("12.3456789") into stroops.
// Digits beyond Stellar precision are truncated. Negative or oversized values are rejected.
func ParseStroops(value string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", value)
	}
	n := d.Shift(StellarPrecision).Truncate(0).BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("amount %q exceeds 64-bit stroops", value)
	}
	return n.Uint64(), nil
}

// FormatBps renders basis points as a percentage string, e.g. 1234 -> "12.34%".
func FormatBps(bps uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), -2).StringFixed(2) + "%"
}

// formatStellar rounds to 7 decimal places and strips trailing zeros.
func formatStellar(d decimal.Decimal) string {
	rounded := d.Round(StellarPrecision)
	s := rounded.StringFixed(StellarPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
