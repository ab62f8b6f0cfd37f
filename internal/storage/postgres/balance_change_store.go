package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

// BalanceChangeStore implements storage.BalanceChangeReader over the
// balance_changes table of the balances database.
type BalanceChangeStore struct {
	pool *Pool
}

// NewBalanceChangeStore creates a new BalanceChangeStore.
func NewBalanceChangeStore(pool *Pool) *BalanceChangeStore {
	return &BalanceChangeStore{pool: pool}
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
		       delta_nonstaked_amount::text,
		       delta_staked_amount::text,
		       absolute_nonstaked_amount::text,
		       absolute_staked_amount::text,
		       cause,
		       block_timestamp::text,
		       block_height::text
		FROM balance_changes
		WHERE affected_account_id = $1 AND block_timestamp < $2::numeric(20, 0)
		ORDER BY block_timestamp DESC, event_index DESC
		LIMIT $3
	`

	var changes []*domain.NativeBalanceChange
	err := s.pool.read(ctx, "native_history", func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, account, numeric.FormatUint64(c.BlockTimestamp), c.Limit)
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

// scanBalanceChanges scans multiple rows into a slice of NativeBalanceChange.
func scanBalanceChanges(rows pgx.Rows) ([]*domain.NativeBalanceChange, error) {
	var changes []*domain.NativeBalanceChange

	for rows.Next() {
		var ch domain.NativeBalanceChange

		err := rows.Scan(
			&ch.InvolvedAccountID,
			&ch.DeltaAvailable,
			&ch.DeltaStaked,
			&ch.AbsoluteAvailable,
			&ch.AbsoluteStaked,
			&ch.Cause,
			&ch.BlockTimestamp,
			&ch.BlockHeight,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance change row: %w", err)
		}

		changes = append(changes, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance change rows: %w", err)
	}

	return changes, nil
}
