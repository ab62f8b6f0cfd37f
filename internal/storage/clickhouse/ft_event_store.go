package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

// FTEventStore implements storage.FTEventReader over the ft_events table.
// The table is replicated from the explorer database and holds events of
// successfully executed receipts only.
type FTEventStore struct {
	conn *Conn
}

// NewFTEventStore creates a new FTEventStore.
func NewFTEventStore(conn *Conn) *FTEventStore {
	return &FTEventStore{conn: conn}
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
		SELECT block_height, block_timestamp, amount, event_kind, old_owner_id, new_owner_id
		FROM ft_events
		WHERE contract_id = ?
		    AND (old_owner_id = ? OR new_owner_id = ?)
		    AND block_timestamp < ?
		ORDER BY block_timestamp DESC, shard_id DESC, event_index DESC
		LIMIT ?
	`

	var events []*domain.FTEvent
	err := s.conn.read(ctx, "ft_history", func(ctx context.Context) error {
		rows, err := s.conn.Query(ctx, query, contract, account, account, c.BlockTimestamp, uint64(c.Limit))
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

// scanFTEvents scans multiple rows.
func scanFTEvents(rows chRows) ([]*domain.FTEvent, error) {
	var events []*domain.FTEvent

	for rows.Next() {
		var e domain.FTEvent
		var height, timestamp uint64
		var amount decimal.Decimal

		err := rows.Scan(&height, &timestamp, &amount, &e.EventKind, &e.OldOwnerID, &e.NewOwnerID)
		if err != nil {
			return nil, fmt.Errorf("scan ft event row: %w", err)
		}

		// Signed, so a negative amount reaches the engine as an invariant violation.
		if e.Amount, err = signedText(amount); err != nil {
			return nil, fmt.Errorf("ft event amount at block %d: %w", height, err)
		}
		e.BlockHeight = numeric.FormatUint64(height)
		e.BlockTimestamp = numeric.FormatUint64(timestamp)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ft event rows: %w", err)
	}

	return events, nil
}
