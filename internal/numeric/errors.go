package numeric

import (
	"errors"
	"fmt"
)

// Conversion errors. Both indicate corrupted upstream data or a logic bug and
// are never retryable.
var (
	// ErrMalformedNumeric is returned when the input is not a canonical integer:
	// empty, signed with '+', padded with whitespace, in exponent notation,
	// with leading zeros, or with a non-zero fractional part.
	ErrMalformedNumeric = errors.New("malformed numeric")

	// ErrOutOfRange is returned when a value does not fit the target width,
	// a negative value is given for an unsigned target, or checked arithmetic
	// would overflow or go negative.
	ErrOutOfRange = errors.New("numeric out of range")
)

// ConversionError describes a failed conversion of a textual or decimal value.
type ConversionError struct {
	Input  string
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %q to %s: %v", truncate(e.Input), e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func truncate(s string) string {
	const max = 96
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
