package domain

import (
	"fmt"
	"regexp"
)

// Account ID length limits.
const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// accountIDPattern matches lowercase alphanumeric parts separated by single
// '-', '_' or '.'. Implicit accounts (64 hex chars) match it too.
var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// AccountID is a validated account identifier.
type AccountID string

// ParseAccountID validates s as an account identifier.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return "", fmt.Errorf("%w: %q has length %d", ErrAccountAddressInvalid, s, len(s))
	}
	if !accountIDPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrAccountAddressInvalid, s)
	}
	return AccountID(s), nil
}

// ParseOptionalAccountID returns nil for an empty string (no counterparty,
// e.g. the missing side of a mint or burn) and a parsed ID otherwise.
func ParseOptionalAccountID(s string) (*AccountID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := ParseAccountID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// String returns the string representation of AccountID.
func (a AccountID) String() string {
	return string(a)
}
