package storage

import (
	"errors"
	"fmt"
)

// Storage errors for read-only event log access.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientIO is returned when the data source kept failing with
	// retryable errors after the reader's own bounded retries.
	ErrTransientIO = errors.New("transient io error")

	// ErrPersistentIO is returned for non-retryable data source failures.
	ErrPersistentIO = errors.New("persistent io error")
)

// Transient marks err as a transient I/O failure of op.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientIO, err)
}

// Persistent marks err as a persistent I/O failure of op.
func Persistent(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistentIO, err)
}

// IsRetryable reports whether err is a transient I/O failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientIO)
}
