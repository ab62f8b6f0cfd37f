package history

import (
	"fmt"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
)

// ProjectNative turns a newest-first page of native balance log rows into
// history items. Every row already carries absolute balances, so the
// projection is row-wise; the snapshots derived from it must still chain:
// the balance before row i equals the balance after row i+1.
func ProjectNative(rows []*domain.NativeBalanceChange) ([]domain.NativeHistoryItem, []Snapshot, error) {
	items := make([]domain.NativeHistoryItem, 0, len(rows))
	snapshots := make([]Snapshot, 0, len(rows))

	var prevTimestamp uint64
	for i, row := range rows {
		item, err := projectNativeRow(row)
		if err != nil {
			return nil, nil, err
		}

		if i > 0 && item.BlockTimestampNanos > prevTimestamp {
			return nil, nil, nativeViolation(ReasonOrdering, row,
				fmt.Sprintf("timestamp %d follows newer-first timestamp %d", item.BlockTimestampNanos, prevTimestamp))
		}
		prevTimestamp = item.BlockTimestampNanos

		before, err := item.TotalBalance.UndoDelta(item.DeltaBalance)
		if err != nil {
			if item.DeltaBalance.Sign() > 0 {
				return nil, nil, nativeViolation(ReasonNegativeBalance, row,
					fmt.Sprintf("total %s before delta %s", item.TotalBalance, item.DeltaBalance))
			}
			return nil, nil, fmt.Errorf("native balance before block %s: %w", row.BlockHeight, err)
		}

		snap := Snapshot{Before: before, After: item.TotalBalance, Delta: item.DeltaBalance}
		if i > 0 && !snapshots[i-1].Before.Equal(snap.After) {
			return nil, nil, nativeViolation(ReasonContinuity, row,
				fmt.Sprintf("balance after is %s, newer row expects %s", snap.After, snapshots[i-1].Before))
		}

		items = append(items, item)
		snapshots = append(snapshots, snap)
	}

	return items, snapshots, nil
}

func projectNativeRow(row *domain.NativeBalanceChange) (domain.NativeHistoryItem, error) {
	var item domain.NativeHistoryItem

	deltaAvailable, err := numeric.ToInt128(row.DeltaAvailable)
	if err != nil {
		return item, fmt.Errorf("delta available: %w", err)
	}
	deltaStaked, err := numeric.ToInt128(row.DeltaStaked)
	if err != nil {
		return item, fmt.Errorf("delta staked: %w", err)
	}
	available, err := numeric.ToUint128(row.AbsoluteAvailable)
	if err != nil {
		return item, fmt.Errorf("available balance: %w", err)
	}
	staked, err := numeric.ToUint128(row.AbsoluteStaked)
	if err != nil {
		return item, fmt.Errorf("staked balance: %w", err)
	}
	timestamp, err := numeric.ToUint64(row.BlockTimestamp)
	if err != nil {
		return item, fmt.Errorf("block timestamp: %w", err)
	}
	height, err := numeric.ToUint64(row.BlockHeight)
	if err != nil {
		return item, fmt.Errorf("block height: %w", err)
	}

	delta, err := deltaAvailable.Add(deltaStaked)
	if err != nil {
		return item, fmt.Errorf("delta balance: %w", err)
	}
	total, err := available.Add(staked)
	if err != nil {
		return item, fmt.Errorf("total balance: %w", err)
	}

	var involved *domain.AccountID
	if row.InvolvedAccountID != nil {
		involved, err = domain.ParseOptionalAccountID(*row.InvolvedAccountID)
		if err != nil {
			return item, fmt.Errorf("involved account: %w", err)
		}
	}

	return domain.NativeHistoryItem{
		InvolvedAccountID:     involved,
		DeltaBalance:          delta,
		DeltaAvailableBalance: deltaAvailable,
		DeltaStakedBalance:    deltaStaked,
		TotalBalance:          total,
		AvailableBalance:      available,
		StakedBalance:         staked,
		Cause:                 row.Cause,
		BlockTimestampNanos:   timestamp,
		BlockHeight:           height,
	}, nil
}

func nativeViolation(reason string, row *domain.NativeBalanceChange, detail string) *InvariantError {
	return &InvariantError{
		Reason:         reason,
		BlockHeight:    row.BlockHeight,
		BlockTimestamp: row.BlockTimestamp,
		EventKind:      domain.EventKindNativeBalanceChange.String(),
		Detail:         detail,
	}
}
