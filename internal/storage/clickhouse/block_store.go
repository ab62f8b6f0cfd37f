package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"balance-history/internal/domain"
	"balance-history/internal/storage"
)

// BlockStore implements storage.BlockReader over the blocks table.
type BlockStore struct {
	conn *Conn
}

// NewBlockStore creates a new BlockStore.
func NewBlockStore(conn *Conn) *BlockStore {
	return &BlockStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BlockReader = (*BlockStore)(nil)

// LatestBlock returns the newest indexed block.
func (s *BlockStore) LatestBlock(ctx context.Context) (*domain.Block, error) {
	query := `
		SELECT block_height, block_timestamp, block_hash
		FROM blocks
		ORDER BY block_timestamp DESC
		LIMIT 1
	`
	return s.queryBlock(ctx, "latest_block", query)
}

// BlockByHeight returns the block at height.
func (s *BlockStore) BlockByHeight(ctx context.Context, height uint64) (*domain.Block, error) {
	query := `
		SELECT block_height, block_timestamp, block_hash
		FROM blocks
		WHERE block_height = ?
		LIMIT 1
	`
	return s.queryBlock(ctx, "block_by_height", query, height)
}

// BlockAtOrBefore returns the newest block with timestamp <= ts.
func (s *BlockStore) BlockAtOrBefore(ctx context.Context, ts uint64) (*domain.Block, error) {
	query := `
		SELECT block_height, block_timestamp, block_hash
		FROM blocks
		WHERE block_timestamp <= ?
		ORDER BY block_timestamp DESC
		LIMIT 1
	`
	return s.queryBlock(ctx, "block_at_or_before", query, ts)
}

// BlockBefore returns the newest block with timestamp < ts.
func (s *BlockStore) BlockBefore(ctx context.Context, ts uint64) (*domain.Block, error) {
	query := `
		SELECT block_height, block_timestamp, block_hash
		FROM blocks
		WHERE block_timestamp < ?
		ORDER BY block_timestamp DESC
		LIMIT 1
	`
	return s.queryBlock(ctx, "block_before", query, ts)
}

func (s *BlockStore) queryBlock(ctx context.Context, op, query string, args ...any) (*domain.Block, error) {
	var block domain.Block
	err := s.conn.read(ctx, op, func(ctx context.Context) error {
		err := s.conn.QueryRow(ctx, query, args...).Scan(&block.Height, &block.Timestamp, &block.Hash)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}
