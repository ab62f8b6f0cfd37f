package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

// BlockStore implements storage.BlockReader over the blocks table.
type BlockStore struct {
	pool *Pool
}

// NewBlockStore creates a new BlockStore.
func NewBlockStore(pool *Pool) *BlockStore {
	return &BlockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BlockReader = (*BlockStore)(nil)

const blockColumns = `block_height::text, block_timestamp::text, block_hash`

// LatestBlock returns the newest indexed block.
func (s *BlockStore) LatestBlock(ctx context.Context) (*domain.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks ORDER BY block_timestamp DESC LIMIT 1`
	return s.queryBlock(ctx, "latest_block", query)
}

// BlockByHeight returns the block at height.
func (s *BlockStore) BlockByHeight(ctx context.Context, height uint64) (*domain.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE block_height = $1::numeric(20, 0)`
	return s.queryBlock(ctx, "block_by_height", query, numeric.FormatUint64(height))
}

// BlockAtOrBefore returns the newest block with timestamp <= ts.
func (s *BlockStore) BlockAtOrBefore(ctx context.Context, ts uint64) (*domain.Block, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE block_timestamp <= $1::numeric(20, 0)
		ORDER BY block_timestamp DESC
		LIMIT 1
	`
	return s.queryBlock(ctx, "block_at_or_before", query, numeric.FormatUint64(ts))
}

// BlockBefore returns the newest block with timestamp < ts.
func (s *BlockStore) BlockBefore(ctx context.Context, ts uint64) (*domain.Block, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE block_timestamp < $1::numeric(20, 0)
		ORDER BY block_timestamp DESC
		LIMIT 1
	`
	return s.queryBlock(ctx, "block_before", query, numeric.FormatUint64(ts))
}

func (s *BlockStore) queryBlock(ctx context.Context, op, query string, args ...any) (*domain.Block, error) {
	var block *domain.Block
	err := s.pool.read(ctx, op, func(ctx context.Context) error {
		b, err := scanBlock(s.pool.QueryRow(ctx, query, args...))
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return err
		}
		block = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// scanBlock scans a single row into a Block.
func scanBlock(row pgx.Row) (*domain.Block, error) {
	var height, timestamp, hash string
	if err := row.Scan(&height, &timestamp, &hash); err != nil {
		return nil, err
	}

	h, err := numeric.ToUint64(height)
	if err != nil {
		return nil, fmt.Errorf("block height: %w", err)
	}
	ts, err := numeric.ToUint64(timestamp)
	if err != nil {
		return nil, fmt.Errorf("block timestamp: %w", err)
	}
	return &domain.Block{Height: h, Timestamp: ts, Hash: hash}, nil
}
