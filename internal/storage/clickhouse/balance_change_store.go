package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

// BalanceChangeStore implements storage.BalanceChangeReader over the
// balance_changes table.
type BalanceChangeStore struct {
	conn *Conn
}

// NewBalanceChangeStore creates a new BalanceChangeStore.
func NewBalanceChangeStore(conn *Conn) *BalanceChangeStore {
	return &BalanceChangeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceChangeReader = (*BalanceChangeStore)(nil)

// NativeHistory returns rows affecting account older than c.BlockTimestamp,
// newest first.
func (s *BalanceChangeStore) NativeHistory(ctx context.Context, account string, c domain.Cursor) ([]*domain.NativeBalanceChange, error) {
	if c.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT involved_account_id,
		       delta_nonstaked_amount, delta_staked_amount,
		       absolute_nonstaked_amount, absolute_staked_amount,
		       cause, block_timestamp, block_height
		FROM balance_changes
		WHERE affected_account_id = ? AND block_timestamp < ?
		ORDER BY block_timestamp DESC, event_index DESC
		LIMIT ?
	`

	var changes []*domain.NativeBalanceChange
	err := s.conn.read(ctx, "native_history", func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx, query, account, c.BlockTimestamp, uint64(c.Limit))
		if err != nil {
			return fmt.Errorf("query balance changes: %w", err)
		}
		defer rows.Close()

		changes, err = scanBalanceChanges(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// scanBalanceChanges scans multiple rows.
func scanBalanceChanges(rows chRows) ([]*domain.NativeBalanceChange, error) {
	var changes []*domain.NativeBalanceChange

	for rows.Next() {
		var ch domain.NativeBalanceChange
		var deltaNonstaked, deltaStaked, absoluteNonstaked, absoluteStaked decimal.Decimal
		var timestamp, height uint64

		err := rows.Scan(
			&ch.InvolvedAccountID,
			&deltaNonstaked, &deltaStaked,
			&absoluteNonstaked, &absoluteStaked,
			&ch.Cause, &timestamp, &height,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance change row: %w", err)
		}

		if ch.DeltaAvailable, err = signedText(deltaNonstaked); err != nil {
			return nil, fmt.Errorf("delta nonstaked at block %d: %w", height, err)
		}
		if ch.DeltaStaked, err = signedText(deltaStaked); err != nil {
			return nil, fmt.Errorf("delta staked at block %d: %w", height, err)
		}
		if ch.AbsoluteAvailable, err = unsignedText(absoluteNonstaked); err != nil {
			return nil, fmt.Errorf("absolute nonstaked at block %d: %w", height, err)
		}
		if ch.AbsoluteStaked, err = unsignedText(absoluteStaked); err != nil {
			return nil, fmt.Errorf("absolute staked at block %d: %w", height, err)
		}
		ch.BlockTimestamp = numeric.FormatUint64(timestamp)
		ch.BlockHeight = numeric.FormatUint64(height)
		changes = append(changes, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance change rows: %w", err)
	}

	return changes, nil
}
