package storage

import (
	"context"

	"balance-history/internal/domain"
)

// BalanceChangeReader provides access to the native coin balance log.
type BalanceChangeReader interface {
	// NativeHistory returns at most c.Limit rows affecting account with
	// block_timestamp < c.BlockTimestamp, ordered newest first.
	NativeHistory(ctx context.Context, account string, c domain.Cursor) ([]*domain.NativeBalanceChange, error)
}

// FTEventReader provides access to fungible token events.
type FTEventReader interface {
	// FTHistory returns at most c.Limit successful events emitted by contract
	// where account is the sender or the receiver, with
	// block_timestamp < c.BlockTimestamp, ordered newest first.
	FTHistory(ctx context.Context, contract, account string, c domain.Cursor) ([]*domain.FTEvent, error)
}

// BlockReader provides access to indexed block headers.
type BlockReader interface {
	// LatestBlock returns the newest indexed block. Returns ErrNotFound if none.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// BlockByHeight returns the block at height. Returns ErrNotFound if not indexed.
	BlockByHeight(ctx context.Context, height uint64) (*domain.Block, error)

	// BlockAtOrBefore returns the newest block with timestamp <= ts. Returns ErrNotFound if none.
	BlockAtOrBefore(ctx context.Context, ts uint64) (*domain.Block, error)

	// BlockBefore returns the newest block with timestamp < ts. Returns ErrNotFound if none.
	BlockBefore(ctx context.Context, ts uint64) (*domain.Block, error)
}

// Readers groups the readers one backend provides.
type Readers struct {
	BalanceChanges BalanceChangeReader
	FTEvents       FTEventReader
	Blocks         BlockReader
}
