package history

import (
	"fmt"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
)

// FTTrail is the result of a backward walk over one page of token events.
type FTTrail struct {
	Items     []domain.CoinHistoryItem
	Snapshots []Snapshot
	// Oldest is the balance before the oldest event of the page, or the
	// anchor itself for an empty page.
	Oldest numeric.U128
}

// ReconstructFT walks a newest-first page of token events backward from
// anchor, the balance of subject at the state that includes every event of
// the page. Each item carries the balance right after its event.
func ReconstructFT(subject string, anchor numeric.U128, events []*domain.FTEvent) (*FTTrail, error) {
	trail := &FTTrail{
		Items:     make([]domain.CoinHistoryItem, 0, len(events)),
		Snapshots: make([]Snapshot, 0, len(events)),
	}

	running := anchor
	var prevTimestamp uint64
	for i, e := range events {
		timestamp, err := numeric.ToUint64(e.BlockTimestamp)
		if err != nil {
			return nil, fmt.Errorf("block timestamp: %w", err)
		}
		height, err := numeric.ToUint64(e.BlockHeight)
		if err != nil {
			return nil, fmt.Errorf("block height: %w", err)
		}
		if i > 0 && timestamp > prevTimestamp {
			return nil, ftViolation(ReasonOrdering, e,
				fmt.Sprintf("timestamp %d follows newer-first timestamp %d", timestamp, prevTimestamp))
		}
		prevTimestamp = timestamp

		amount, err := numeric.ToInt128(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount: %w", err)
		}
		if amount.Sign() < 0 {
			return nil, ftViolation(ReasonNegativeAmount, e, "amount "+e.Amount)
		}

		role := ResolveRole(subject, e.OldOwnerID, e.NewOwnerID)
		delta, err := signedDelta(role, amount)
		if err != nil {
			if role.Kind == Inconsistent {
				return nil, ftViolation(ReasonInconsistentRole, e,
					fmt.Sprintf("%s is neither sender %q nor receiver %q", subject, e.OldOwnerID, e.NewOwnerID))
			}
			return nil, fmt.Errorf("delta at block %s: %w", e.BlockHeight, err)
		}

		involved, err := domain.ParseOptionalAccountID(role.Counterparty)
		if err != nil {
			return nil, fmt.Errorf("involved account: %w", err)
		}

		before, err := running.UndoDelta(delta)
		if err != nil {
			if delta.Sign() > 0 {
				return nil, ftViolation(ReasonNegativeBalance, e,
					fmt.Sprintf("balance %s before receiving %s", running, amount))
			}
			return nil, fmt.Errorf("balance before block %s: %w", e.BlockHeight, err)
		}

		trail.Items = append(trail.Items, domain.CoinHistoryItem{
			ActionKind:          e.EventKind,
			InvolvedAccountID:   involved,
			DeltaBalance:        delta,
			Balance:             running,
			BlockTimestampNanos: timestamp,
			BlockHeight:         height,
		})
		trail.Snapshots = append(trail.Snapshots, Snapshot{Before: before, After: running, Delta: delta})
		running = before
	}

	trail.Oldest = running
	return trail, nil
}

// signedDelta returns the effect of an event on the subject's balance.
func signedDelta(role Role, amount numeric.I128) (numeric.I128, error) {
	switch role.Kind {
	case SenderRole:
		return amount.Neg()
	case ReceiverRole:
		return amount, nil
	case SelfRole:
		return numeric.I128{}, nil
	default:
		return numeric.I128{}, ErrInternal
	}
}

func ftViolation(reason string, e *domain.FTEvent, detail string) *InvariantError {
	return &InvariantError{
		Reason:         reason,
		BlockHeight:    e.BlockHeight,
		BlockTimestamp: e.BlockTimestamp,
		EventKind:      e.Kind().String(),
		Detail:         detail,
	}
}
