package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/observability"
	"balance-history/internal/storage"
)

// Asset labels for logs and metrics.
const (
	AssetNative = "NEAR"
	AssetFT     = "FT"
)

// ErrConflictingStart is returned when a start point is given both as a
// height and as a timestamp.
var ErrConflictingStart = errors.New("block height and block timestamp are mutually exclusive")

// BalanceOracle returns the token balance of an account at a block height.
type BalanceOracle interface {
	BalanceAt(ctx context.Context, contract, account string, height uint64) (numeric.U128, error)
}

// NativePage is one page of native coin history.
type NativePage struct {
	Items []domain.NativeHistoryItem
	Next  *domain.Cursor // nil on the last page
}

// CoinPage is one page of fungible token history.
type CoinPage struct {
	Items  []domain.CoinHistoryItem
	Next   *domain.Cursor // nil on the last page
	Anchor numeric.U128   // balance at the cursor height
}

// StartParams selects the block a history listing starts from.
// With neither field set the latest indexed block is used.
type StartParams struct {
	BlockHeight    *uint64
	BlockTimestamp *uint64
}

// Service serves history pages. It holds no per-request state; every call
// owns its fold.
type Service struct {
	balances storage.BalanceChangeReader
	events   storage.FTEventReader
	blocks   storage.BlockReader
	oracle   BalanceOracle
	logger   zerolog.Logger
}

// NewService creates a history service.
func NewService(readers storage.Readers, oracle BalanceOracle, logger zerolog.Logger) *Service {
	return &Service{
		balances: readers.BalanceChanges,
		events:   readers.FTEvents,
		blocks:   readers.Blocks,
		oracle:   oracle,
		logger:   logger,
	}
}

// StartBlock returns the indexed block a listing selected by p starts from.
func (s *Service) StartBlock(ctx context.Context, p StartParams) (*domain.Block, error) {
	var (
		block *domain.Block
		err   error
	)
	switch {
	case p.BlockHeight != nil && p.BlockTimestamp != nil:
		return nil, ErrConflictingStart
	case p.BlockHeight != nil:
		block, err = s.blocks.BlockByHeight(ctx, *p.BlockHeight)
	case p.BlockTimestamp != nil:
		block, err = s.blocks.BlockAtOrBefore(ctx, *p.BlockTimestamp)
	default:
		block, err = s.blocks.LatestBlock(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve start block: %w", err)
	}
	return block, nil
}

// ResolveStart returns the first-page cursor for p.
func (s *Service) ResolveStart(ctx context.Context, p StartParams, limit int) (domain.Cursor, error) {
	block, err := s.StartBlock(ctx, p)
	if err != nil {
		return domain.Cursor{}, err
	}
	c := domain.StartCursor(*block, limit)
	return c, c.Validate()
}

// NativeHistory returns the native coin history of account inside c.
func (s *Service) NativeHistory(ctx context.Context, account string, c domain.Cursor) (*NativePage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.balances.NativeHistory(ctx, account, lookAhead(c))
	if err != nil {
		return nil, fmt.Errorf("read native history: %w", err)
	}

	rows, full := trimPage(s.pageLogger(AssetNative, account), rows, c.Limit, func(r *domain.NativeBalanceChange) string {
		return r.BlockTimestamp
	})
	if full && len(rows) < c.Limit {
		observability.RecordPageTrimmed(AssetNative)
	}

	items, _, err := ProjectNative(rows)
	if err != nil {
		s.fail(AssetNative, account, AssetNative, err)
		return nil, err
	}

	page := &NativePage{Items: items}
	if full && len(items) > 0 {
		oldest := items[len(items)-1].BlockTimestampNanos
		page.Next, err = s.nextCursor(ctx, oldest, c.Limit)
		if err != nil {
			return nil, err
		}
		// Native rows live in a separate database and may predate every
		// indexed block. They are filtered by timestamp only.
		if page.Next == nil {
			page.Next = &domain.Cursor{BlockTimestamp: oldest, Limit: c.Limit}
		}
	}
	return page, nil
}

// FTHistory returns the token history of account on contract inside c.
// The event page and the anchor balance are fetched concurrently.
func (s *Service) FTHistory(ctx context.Context, contract, account string, c domain.Cursor) (*CoinPage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var (
		events []*domain.FTEvent
		anchor numeric.U128
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.events.FTHistory(gctx, contract, account, lookAhead(c))
		if err != nil {
			return fmt.Errorf("read ft history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		anchor, err = s.oracle.BalanceAt(gctx, contract, account, c.BlockHeight)
		if err != nil {
			return fmt.Errorf("anchor balance at %d: %w", c.BlockHeight, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events, full := trimPage(s.pageLogger(contract, account), events, c.Limit, func(e *domain.FTEvent) string {
		return e.BlockTimestamp
	})
	if full && len(events) < c.Limit {
		observability.RecordPageTrimmed(AssetFT)
	}

	trail, err := ReconstructFT(account, anchor, events)
	if err != nil {
		s.fail(AssetFT, account, contract, err)
		return nil, err
	}

	page := &CoinPage{Items: trail.Items, Anchor: anchor}
	if full && len(trail.Items) > 0 {
		page.Next, err = s.nextCursor(ctx, trail.Items[len(trail.Items)-1].BlockTimestampNanos, c.Limit)
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

// nextCursor bounds the following page to events older than oldest and pins
// the oracle to the newest block before that timestamp.
func (s *Service) nextCursor(ctx context.Context, oldest uint64, limit int) (*domain.Cursor, error) {
	block, err := s.blocks.BlockBefore(ctx, oldest)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next cursor block: %w", err)
	}
	return &domain.Cursor{BlockHeight: block.Height, BlockTimestamp: oldest, Limit: limit}, nil
}

// trimPage cuts a look-ahead page down to limit rows ending on a block
// boundary, so that the next page, bounded by the oldest kept timestamp,
// skips nothing. full reports whether more rows exist. When a single block
// holds more than limit rows the page is kept whole and the rest of that
// block is unreachable; this is logged.
func trimPage[T any](logger zerolog.Logger, rows []T, limit int, ts func(T) string) (kept []T, full bool) {
	if len(rows) <= limit {
		return rows, false
	}
	boundary := ts(rows[limit])
	if ts(rows[limit-1]) != boundary {
		return rows[:limit], true
	}
	end := limit
	for end > 0 && ts(rows[end-1]) == boundary {
		end--
	}
	if end == 0 {
		logger.Warn().
			Str("block_timestamp", boundary).
			Int("limit", limit).
			Msg("block holds more events than the page limit")
		return rows[:limit], true
	}
	return rows[:end], true
}

func (s *Service) pageLogger(asset, account string) zerolog.Logger {
	return s.logger.With().Str("account", account).Str("asset", asset).Logger()
}

// fail logs an invariant violation with its context and counts it.
func (s *Service) fail(kind, account, asset string, err error) {
	reason := FailureReason(err)
	observability.RecordReconstructionFailure(kind, reason)

	ev := s.logger.Error().Err(err).
		Str("account", account).
		Str("asset", asset).
		Str("reason", reason)
	var inv *InvariantError
	if errors.As(err, &inv) {
		ev = ev.Str("block_height", inv.BlockHeight).
			Str("block_timestamp", inv.BlockTimestamp).
			Str("event_kind", inv.EventKind)
	}
	ev.Msg("balance reconstruction failed")
}

func lookAhead(c domain.Cursor) domain.Cursor {
	c.Limit++
	return c
}
