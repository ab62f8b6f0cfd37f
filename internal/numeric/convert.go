// Package numeric converts arbitrary-precision decimal values, as stored in the
// indexer databases, into fixed-width integers and back.
//
// All arithmetic on the 128-bit types is computed in 256 bits and range-checked
// afterwards, so overflow is always reported and never wraps.
package numeric

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Target names used in ConversionError.
const (
	targetU64  = "u64"
	targetU128 = "u128"
	targetI128 = "i128"
)

var (
	one = uint256.NewInt(1)

	// maxU128 = 2^128 - 1
	maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(one, 128), one)
	// maxI128 = 2^127 - 1
	maxI128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(one, 127), one)
	// minI128 = -2^127 in two's complement
	minI128 = new(uint256.Int).Neg(new(uint256.Int).Lsh(one, 127))
)

// ToUint128 converts a canonical decimal string to U128.
func ToUint128(s string) (U128, error) {
	b, err := parseInteger(s)
	if err != nil {
		return U128{}, &ConversionError{Input: s, Target: targetU128, Err: err}
	}
	return uint128FromBig(s, b)
}

// ToInt128 converts a canonical decimal string to I128.
func ToInt128(s string) (I128, error) {
	b, err := parseInteger(s)
	if err != nil {
		return I128{}, &ConversionError{Input: s, Target: targetI128, Err: err}
	}
	return int128FromBig(s, b)
}

// ToUint64 converts a canonical decimal string to uint64.
// Used for block heights and nanosecond timestamps.
func ToUint64(s string) (uint64, error) {
	b, err := parseInteger(s)
	if err != nil {
		return 0, &ConversionError{Input: s, Target: targetU64, Err: err}
	}
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, &ConversionError{Input: s, Target: targetU64, Err: ErrOutOfRange}
	}
	return b.Uint64(), nil
}

// FormatUint64 renders a u64 the way ToUint64 accepts it.
func FormatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// Uint128FromDecimal converts a decimal.Decimal to U128.
func Uint128FromDecimal(d decimal.Decimal) (U128, error) {
	if !d.IsInteger() {
		return U128{}, &ConversionError{Input: d.String(), Target: targetU128, Err: ErrMalformedNumeric}
	}
	return uint128FromBig(d.String(), d.BigInt())
}

// Int128FromDecimal converts a decimal.Decimal to I128.
func Int128FromDecimal(d decimal.Decimal) (I128, error) {
	if !d.IsInteger() {
		return I128{}, &ConversionError{Input: d.String(), Target: targetI128, Err: ErrMalformedNumeric}
	}
	return int128FromBig(d.String(), d.BigInt())
}

func uint128FromBig(input string, b *big.Int) (U128, error) {
	if b.Sign() < 0 || b.BitLen() > 128 {
		return U128{}, &ConversionError{Input: input, Target: targetU128, Err: ErrOutOfRange}
	}
	var u U128
	u.v.SetFromBig(b)
	return u, nil
}

func int128FromBig(input string, b *big.Int) (I128, error) {
	// BitLen ignores the sign: 2^127 has BitLen 128 and only fits as a negative.
	if b.BitLen() > 128 {
		return I128{}, &ConversionError{Input: input, Target: targetI128, Err: ErrOutOfRange}
	}
	var i I128
	i.v.SetFromBig(b)
	if !inInt128Range(&i.v) {
		return I128{}, &ConversionError{Input: input, Target: targetI128, Err: ErrOutOfRange}
	}
	return i, nil
}

// parseInteger validates the canonical grammar -?(0|[1-9][0-9]*)(\.[0-9]+)?
// before handing the text to decimal, which would otherwise accept exponents.
func parseInteger(s string) (*big.Int, error) {
	if !isCanonical(s) {
		return nil, ErrMalformedNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ErrMalformedNumeric
	}
	if !d.IsInteger() {
		return nil, ErrMalformedNumeric
	}
	return d.BigInt(), nil
}

// isCanonical rejects a negative zero such as "-0" or "-0.000" along with
// leading zeros, signs other than '-', and exponents.
func isCanonical(s string) bool {
	i := 0
	negative := i < len(s) && s[i] == '-'
	if negative {
		i++
	}
	if negative && strings.Trim(s[i:], "0.") == "" {
		return false
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits := i - start
	if digits == 0 {
		return false
	}
	if digits > 1 && s[start] == '0' {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}
	i++
	frac := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i > frac && i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func inInt128Range(v *uint256.Int) bool {
	return !v.Slt(minI128) && !v.Sgt(maxI128)
}
