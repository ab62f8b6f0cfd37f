package domain

import "errors"

// Domain validation errors.
var (
	// ErrAccountAddressInvalid is returned when an account identifier fails parsing.
	ErrAccountAddressInvalid = errors.New("account address invalid")

	// ErrInvalidCursor is returned when a pagination cursor is malformed or has a non-positive limit.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidBlockHash is returned when a block hash is not 32 bytes of base58.
	ErrInvalidBlockHash = errors.New("invalid block hash")
)
