// Copyright 2025 Certen Protocol

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of decimal places for HCLAW, matching ETH's 18.
const Decimals = 18

var (
	// oneHclaw is 10^18 base units.
	oneHclaw = mustPow10(Decimals)
	// maxSupplyAmount caps saturating arithmetic at 1 billion HCLAW.
	maxSupplyAmount = new(uint256.Int).Mul(uint256.NewInt(1_000_000_000), oneHclaw)
)

func mustPow10(n int) *uint256.Int {
	result := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := 0; i < n; i++ {
		result = new(uint256.Int).Mul(result, ten)
	}
	return result
}

// ErrAmountOverflow is returned by checked arithmetic that would overflow.
var ErrAmountOverflow = errors.New("types: amount overflow")

// ErrAmountUnderflow is returned by checked subtraction that would go negative.
var ErrAmountUnderflow = errors.New("types: amount underflow")

// ErrInvalidAmountFormat is returned when parsing a malformed decimal string.
var ErrInvalidAmountFormat = errors.New("types: invalid amount format")

// ErrTooManyDecimals is returned when a decimal string has more than
// Decimals fractional digits.
var ErrTooManyDecimals = errors.New("types: too many decimal places")

// Amount is an HCLAW token amount stored as a 128-bit-range unsigned
// integer in the smallest base unit (analogous to wei for ETH), backed by
// a 256-bit integer so intermediate multiplications never wrap silently.
type Amount struct {
	raw uint256.Int
}

// Zero is the zero amount.
var Zero = Amount{}

// MaxSupply is the maximum representable supply: 1,000,000,000 HCLAW.
func MaxSupply() Amount {
	return Amount{raw: *maxSupplyAmount}
}

// AmountFromRaw constructs an Amount directly from base units.
func AmountFromRaw(raw *uint256.Int) Amount {
	var a Amount
	a.raw.Set(raw)
	return a
}

// AmountFromHclaw constructs an Amount from a whole number of HCLAW.
func AmountFromHclaw(hclaw uint64) Amount {
	var a Amount
	a.raw.Mul(uint256.NewInt(hclaw), oneHclaw)
	return a
}

// AmountFromDecimalString parses a decimal string such as "1.5" into an
// Amount, scaling the fractional part to Decimals places.
func AmountFromDecimalString(s string) (Amount, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 2 {
		return Zero, ErrInvalidAmountFormat
	}

	whole, err := uint256.FromDecimal(parts[0])
	if err != nil {
		return Zero, ErrInvalidAmountFormat
	}

	var fractional uint256.Int
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > Decimals {
			return Zero, ErrTooManyDecimals
		}
		padded := frac + strings.Repeat("0", Decimals-len(frac))
		parsed, err := uint256.FromDecimal(padded)
		if err != nil {
			return Zero, ErrInvalidAmountFormat
		}
		fractional = *parsed
	}

	scaledWhole, overflow := new(uint256.Int).MulOverflow(whole, oneHclaw)
	if overflow {
		return Zero, ErrAmountOverflow
	}
	total, overflow := new(uint256.Int).AddOverflow(scaledWhole, &fractional)
	if overflow {
		return Zero, ErrAmountOverflow
	}
	return Amount{raw: *total}, nil
}

// Raw returns the underlying base-unit integer.
func (a Amount) Raw() *uint256.Int {
	r := a.raw
	return &r
}

// RawBytes returns the base-unit value as 16 little-endian bytes (a true
// 128-bit range; HCLAW's MaxSupply never approaches the 256-bit ceiling),
// matching the reference implementation's u128::to_le_bytes() convention.
func (a Amount) RawBytes() [16]byte {
	var out [16]byte
	b := a.raw.Bytes32()
	// b is big-endian; the low-order 128 bits are the last 16 bytes.
	// Reverse them to produce little-endian output.
	for i := 0; i < 16; i++ {
		out[i] = b[31-i]
	}
	return out
}

// WholeHclaw returns the truncated whole-HCLAW part.
func (a Amount) WholeHclaw() uint64 {
	whole := new(uint256.Int).Div(&a.raw, oneHclaw)
	return whole.Uint64()
}

// ToDecimalString renders the amount as a decimal string, e.g. "1.5" or
// "100.0", trimming trailing fractional zeros (but never the decimal
// point itself).
func (a Amount) ToDecimalString() string {
	whole := new(uint256.Int).Div(&a.raw, oneHclaw)
	frac := new(uint256.Int).Mod(&a.raw, oneHclaw)

	if frac.IsZero() {
		return fmt.Sprintf("%s.0", whole.Dec())
	}

	fracStr := frac.Dec()
	fracStr = strings.Repeat("0", Decimals-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%s.%s", whole.Dec(), fracStr)
}

func (a Amount) String() string {
	return a.ToDecimalString() + " HCLAW"
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw.IsZero()
}

// Cmp compares a to other: -1, 0, or 1.
func (a Amount) Cmp(other Amount) int {
	return a.raw.Cmp(&other.raw)
}

// LessThan reports whether a < other.
func (a Amount) LessThan(other Amount) bool {
	return a.Cmp(other) < 0
}

// CheckedAdd returns a+other, or ErrAmountOverflow if it would overflow.
func (a Amount) CheckedAdd(other Amount) (Amount, error) {
	sum, overflow := new(uint256.Int).AddOverflow(&a.raw, &other.raw)
	if overflow {
		return Zero, ErrAmountOverflow
	}
	return Amount{raw: *sum}, nil
}

// CheckedSub returns a-other, or ErrAmountUnderflow if other > a.
func (a Amount) CheckedSub(other Amount) (Amount, error) {
	diff, underflow := new(uint256.Int).SubOverflow(&a.raw, &other.raw)
	if underflow {
		return Zero, ErrAmountUnderflow
	}
	return Amount{raw: *diff}, nil
}

// CheckedMul returns a*factor, or ErrAmountOverflow if it would overflow.
func (a Amount) CheckedMul(factor uint64) (Amount, error) {
	product, overflow := new(uint256.Int).MulOverflow(&a.raw, uint256.NewInt(factor))
	if overflow {
		return Zero, ErrAmountOverflow
	}
	return Amount{raw: *product}, nil
}

// CheckedDiv returns a/divisor, or an error if divisor is zero.
func (a Amount) CheckedDiv(divisor uint64) (Amount, error) {
	if divisor == 0 {
		return Zero, fmt.Errorf("types: division by zero")
	}
	quot := new(uint256.Int).Div(&a.raw, uint256.NewInt(divisor))
	return Amount{raw: *quot}, nil
}

// Percentage returns a*percent/100 (e.g. percent=95 for 95%). Matches the
// original implementation's unchecked multiply-then-divide: callers that
// need overflow safety on extreme values should pre-validate separately.
func (a Amount) Percentage(percent uint8) Amount {
	product := new(uint256.Int).Mul(&a.raw, uint256.NewInt(uint64(percent)))
	quot := new(uint256.Int).Div(product, uint256.NewInt(100))
	return Amount{raw: *quot}
}

// SaturatingAdd adds two amounts, capping the result at MaxSupply instead
// of overflowing.
func (a Amount) SaturatingAdd(other Amount) Amount {
	sum, overflow := new(uint256.Int).AddOverflow(&a.raw, &other.raw)
	if overflow || sum.Cmp(maxSupplyAmount) > 0 {
		return MaxSupply()
	}
	return Amount{raw: *sum}
}

// SaturatingSub subtracts other from a, flooring at zero instead of
// underflowing.
func (a Amount) SaturatingSub(other Amount) Amount {
	diff, underflow := new(uint256.Int).SubOverflow(&a.raw, &other.raw)
	if underflow {
		return Zero
	}
	return Amount{raw: *diff}
}
