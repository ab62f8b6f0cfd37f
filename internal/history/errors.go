package history

import (
	"errors"
	"fmt"
)

// ErrInternal is returned when a balance invariant is violated. It always
// points at inconsistent source data or a bug upstream of the engine.
var ErrInternal = errors.New("internal error")

// Invariant violation reasons, used as log fields and metric labels.
const (
	ReasonNegativeBalance  = "negative_balance"
	ReasonInconsistentRole = "inconsistent_role"
	ReasonOrdering         = "ordering"
	ReasonContinuity       = "continuity"
	ReasonNegativeAmount   = "negative_amount"
)

// InvariantError describes the event that broke an invariant.
type InvariantError struct {
	Reason         string
	BlockHeight    string
	BlockTimestamp string
	EventKind      string
	Detail         string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s at block %s (ts %s, %s): %s",
		ErrInternal, e.Reason, e.BlockHeight, e.BlockTimestamp, e.EventKind, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInternal
}

// FailureReason classifies err for logs and metrics.
func FailureReason(err error) string {
	var inv *InvariantError
	if errors.As(err, &inv) {
		return inv.Reason
	}
	return "other"
}
