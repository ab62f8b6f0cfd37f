package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

// FTEventStore implements storage.FTEventReader over the explorer database.
// Only events of successfully executed receipts are returned.
type FTEventStore struct {
	pool *Pool
}

// NewFTEventStore creates a new FTEventStore.
func NewFTEventStore(pool *Pool) *FTEventStore {
	return &FTEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FTEventReader = (*FTEventStore)(nil)

// FTHistory returns events of contract involving account older than
// c.BlockTimestamp, newest first.
func (s *FTEventStore) FTHistory(ctx context.Context, contract, account string, c domain.Cursor) ([]*domain.FTEvent, error) {
	if c.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT blocks.block_height::text,
		       blocks.block_timestamp::text,
		       e.amount::numeric(45, 0)::text,
		       e.event_kind::text,
		       COALESCE(e.token_old_owner_account_id, ''),
		       COALESCE(e.token_new_owner_account_id, '')
		FROM assets__fungible_token_events e
		    JOIN blocks ON e.emitted_at_block_timestamp = blocks.block_timestamp
		    JOIN execution_outcomes ON e.emitted_for_receipt_id = execution_outcomes.receipt_id
		WHERE e.emitted_by_contract_account_id = $1
		    AND execution_outcomes.status IN ('SUCCESS_VALUE', 'SUCCESS_RECEIPT_ID')
		    AND (e.token_old_owner_account_id = $2 OR e.token_new_owner_account_id = $2)
		    AND e.emitted_at_block_timestamp < $3::numeric(20, 0)
		ORDER BY e.emitted_at_block_timestamp DESC,
		         e.emitted_in_shard_id DESC,
		         e.emitted_index_of_event_entry_in_shard DESC
		LIMIT $4
	`

	var events []*domain.FTEvent
	err := s.pool.read(ctx, "ft_history", func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, contract, account, numeric.FormatUint64(c.BlockTimestamp), c.Limit)
		if err != nil {
			return fmt.Errorf("query ft events: %w", err)
		}
		defer rows.Close()

		events, err = scanFTEvents(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// scanFTEvents scans multiple rows into a slice of FTEvent.
func scanFTEvents(rows pgx.Rows) ([]*domain.FTEvent, error) {
	var events []*domain.FTEvent

	for rows.Next() {
		var e domain.FTEvent

		err := rows.Scan(
			&e.BlockHeight,
			&e.BlockTimestamp,
			&e.Amount,
			&e.EventKind,
			&e.OldOwnerID,
			&e.NewOwnerID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ft event row: %w", err)
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ft event rows: %w", err)
	}

	return events, nil
}
