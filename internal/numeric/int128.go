package numeric

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

// U128 is an unsigned 128-bit integer. The zero value is 0.
type U128 struct {
	v uint256.Int
}

// I128 is a signed 128-bit integer stored in two's complement. The zero value is 0.
type I128 struct {
	v uint256.Int
}

// U128FromUint64 returns v as U128.
func U128FromUint64(v uint64) U128 {
	var u U128
	u.v.SetUint64(v)
	return u
}

// I128FromInt64 returns v as I128.
func I128FromInt64(v int64) I128 {
	var i I128
	if v < 0 {
		i.v.SetUint64(uint64(-(v + 1)))
		i.v.Add(&i.v, one)
		i.v.Neg(&i.v)
		return i
	}
	i.v.SetUint64(uint64(v))
	return i
}

// String renders u in canonical decimal form.
func (u U128) String() string {
	return u.v.Dec()
}

// IsZero reports whether u == 0.
func (u U128) IsZero() bool {
	return u.v.IsZero()
}

// Equal reports whether u == o.
func (u U128) Equal(o U128) bool {
	return u.v.Eq(&o.v)
}

// Add returns u + o or ErrOutOfRange on overflow.
func (u U128) Add(o U128) (U128, error) {
	var r U128
	r.v.Add(&u.v, &o.v)
	if r.v.Gt(maxU128) {
		return U128{}, fmt.Errorf("%w: %s + %s overflows u128", ErrOutOfRange, u, o)
	}
	return r, nil
}

// Sub returns u - o or ErrOutOfRange if the result would be negative.
func (u U128) Sub(o U128) (U128, error) {
	if u.v.Lt(&o.v) {
		return U128{}, fmt.Errorf("%w: %s - %s is negative", ErrOutOfRange, u, o)
	}
	var r U128
	r.v.Sub(&u.v, &o.v)
	return r, nil
}

// UndoDelta returns u - d, walking backward in time over an event with delta d.
func (u U128) UndoDelta(d I128) (U128, error) {
	var r uint256.Int
	r.Sub(&u.v, &d.v)
	return u.checkedSigned(&r, d, "-")
}

// checkedSigned validates r computed as u op d. |u| < 2^128 and |d| <= 2^127,
// so the 256-bit result never wraps and its sign is meaningful.
func (u U128) checkedSigned(r *uint256.Int, d I128, op string) (U128, error) {
	if r.Sign() < 0 {
		return U128{}, fmt.Errorf("%w: %s %s (%s) is negative", ErrOutOfRange, u, op, d)
	}
	if r.Gt(maxU128) {
		return U128{}, fmt.Errorf("%w: %s %s (%s) overflows u128", ErrOutOfRange, u, op, d)
	}
	var out U128
	out.v.Set(r)
	return out, nil
}

// MarshalJSON renders u as a quoted decimal string so that JSON consumers
// limited to float64 do not lose precision.
func (u U128) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(u.String())), nil
}

// UnmarshalJSON parses a quoted canonical decimal string.
func (u *U128) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return &ConversionError{Input: string(data), Target: targetU128, Err: ErrMalformedNumeric}
	}
	parsed, err := ToUint128(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Delta returns after - before as a signed value.
func Delta(after, before U128) (I128, error) {
	var r I128
	r.v.Sub(&after.v, &before.v)
	if !inInt128Range(&r.v) {
		return I128{}, fmt.Errorf("%w: %s - %s does not fit i128", ErrOutOfRange, after, before)
	}
	return r, nil
}

// String renders i in canonical decimal form with a leading '-' when negative.
func (i I128) String() string {
	if i.v.Sign() < 0 {
		var abs uint256.Int
		abs.Neg(&i.v)
		return "-" + abs.Dec()
	}
	return i.v.Dec()
}

// Sign returns -1, 0 or +1.
func (i I128) Sign() int {
	return i.v.Sign()
}

// IsZero reports whether i == 0.
func (i I128) IsZero() bool {
	return i.v.IsZero()
}

// Equal reports whether i == o.
func (i I128) Equal(o I128) bool {
	return i.v.Eq(&o.v)
}

// Neg returns -i or ErrOutOfRange for -2^127.
func (i I128) Neg() (I128, error) {
	var r I128
	r.v.Neg(&i.v)
	if !inInt128Range(&r.v) {
		return I128{}, fmt.Errorf("%w: -(%s) does not fit i128", ErrOutOfRange, i)
	}
	return r, nil
}

// Add returns i + o or ErrOutOfRange on overflow.
func (i I128) Add(o I128) (I128, error) {
	var r I128
	r.v.Add(&i.v, &o.v)
	if !inInt128Range(&r.v) {
		return I128{}, fmt.Errorf("%w: %s + %s overflows i128", ErrOutOfRange, i, o)
	}
	return r, nil
}

// MarshalJSON renders i as a quoted decimal string.
func (i I128) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.String())), nil
}

// UnmarshalJSON parses a quoted canonical decimal string.
func (i *I128) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return &ConversionError{Input: string(data), Target: targetI128, Err: ErrMalformedNumeric}
	}
	parsed, err := ToInt128(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
