package verification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"balance-history/internal/domain"
	"balance-history/internal/history"
	"balance-history/internal/near"
	"balance-history/internal/numeric"
)

// DefaultPageLimit is the page size used when Options.PageLimit is unset.
const DefaultPageLimit = 100

// HistorySource serves history pages. *history.Service implements it.
type HistorySource interface {
	StartBlock(ctx context.Context, p history.StartParams) (*domain.Block, error)
	NativeHistory(ctx context.Context, account string, c domain.Cursor) (*history.NativePage, error)
	FTHistory(ctx context.Context, contract, account string, c domain.Cursor) (*history.CoinPage, error)
}

// ChainBlocks looks blocks up on chain. *near.Oracle implements it.
type ChainBlocks interface {
	Block(ctx context.Context, ref near.BlockRef) (*domain.Block, error)
}

// Options tunes a walk.
type Options struct {
	PageLimit   int         // items per page
	MaxPages    int         // 0 walks the whole history
	SampleEvery int         // ask the oracle at every n-th block boundary
	Chain       ChainBlocks // if set, the start block is checked against the chain
}

// HistoryVerifier implements Verifier over a history source.
type HistoryVerifier struct {
	source HistorySource
	oracle history.BalanceOracle
	opts   Options
	logger zerolog.Logger
}

// Compile-time interface check.
var _ Verifier = (*HistoryVerifier)(nil)

// NewHistoryVerifier creates a verifier. oracle may be nil when only
// native history is verified.
func NewHistoryVerifier(source HistorySource, oracle history.BalanceOracle, opts Options, logger zerolog.Logger) *HistoryVerifier {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = 1
	}
	return &HistoryVerifier{source: source, oracle: oracle, opts: opts, logger: logger}
}

// VerifyFT checks the balance after the newest event of each sampled block
// against the oracle at that height, and that every page starts at the
// balance the previous page ended before.
func (v *HistoryVerifier) VerifyFT(ctx context.Context, contract, account string, start history.StartParams) (*Report, error) {
	if v.oracle == nil {
		return nil, fmt.Errorf("verify %s: no balance oracle configured", contract)
	}

	report := &Report{Account: account, Asset: contract}
	c, err := v.start(ctx, start, report)
	if err != nil {
		return nil, err
	}

	var (
		expect     *numeric.U128 // balance before the oldest item of the previous page
		prevHeight uint64
		seen       bool
		boundaries int
	)

	for {
		if v.opts.MaxPages > 0 && report.Pages == v.opts.MaxPages {
			report.Truncated = true
			break
		}

		page, err := v.source.FTHistory(ctx, contract, account, c)
		if err != nil {
			return report, fmt.Errorf("page %d: %w", report.Pages+1, err)
		}
		report.Pages++
		report.Items += len(page.Items)

		for i, it := range page.Items {
			if i == 0 && expect != nil && !expect.Equal(it.Balance) {
				report.diverge(CheckContinuity, it.BlockHeight, expect.String(), it.Balance.String())
			}

			// Items are newest first, so the first item seen at a height is
			// the last event of that block and must match the chain state.
			if !seen || it.BlockHeight != prevHeight {
				if boundaries%v.opts.SampleEvery == 0 {
					onChain, err := v.oracle.BalanceAt(ctx, contract, account, it.BlockHeight)
					if err != nil {
						return report, fmt.Errorf("oracle at %d: %w", it.BlockHeight, err)
					}
					report.OracleChecks++
					if !onChain.Equal(it.Balance) {
						report.diverge(CheckOracle, it.BlockHeight, onChain.String(), it.Balance.String())
					}
				}
				boundaries++
			}
			prevHeight, seen = it.BlockHeight, true
		}

		if n := len(page.Items); n > 0 {
			last := page.Items[n-1]
			before, err := last.Balance.UndoDelta(last.DeltaBalance)
			if err != nil {
				return report, fmt.Errorf("balance before block %d: %w", last.BlockHeight, err)
			}
			expect = &before
		}

		if page.Next == nil {
			break
		}
		c = *page.Next
	}

	v.log(report)
	return report, nil
}

// VerifyNative checks that every page starts at the total balance the
// previous page ended before. Continuity inside a page is enforced by the
// engine itself.
func (v *HistoryVerifier) VerifyNative(ctx context.Context, account string, start history.StartParams) (*Report, error) {
	report := &Report{Account: account, Asset: history.AssetNative}
	c, err := v.start(ctx, start, report)
	if err != nil {
		return nil, err
	}

	var expect *numeric.U128

	for {
		if v.opts.MaxPages > 0 && report.Pages == v.opts.MaxPages {
			report.Truncated = true
			break
		}

		page, err := v.source.NativeHistory(ctx, account, c)
		if err != nil {
			return report, fmt.Errorf("page %d: %w", report.Pages+1, err)
		}
		report.Pages++
		report.Items += len(page.Items)

		if n := len(page.Items); n > 0 {
			first := page.Items[0]
			if expect != nil && !expect.Equal(first.TotalBalance) {
				report.diverge(CheckContinuity, first.BlockHeight, expect.String(), first.TotalBalance.String())
			}

			last := page.Items[n-1]
			before, err := last.TotalBalance.UndoDelta(last.DeltaBalance)
			if err != nil {
				return report, fmt.Errorf("balance before block %d: %w", last.BlockHeight, err)
			}
			expect = &before
		}

		if page.Next == nil {
			break
		}
		c = *page.Next
	}

	v.log(report)
	return report, nil
}

// start resolves the first cursor and, with a chain configured, checks that
// the indexed start block is the canonical block of that hash.
func (v *HistoryVerifier) start(ctx context.Context, p history.StartParams, report *Report) (domain.Cursor, error) {
	block, err := v.source.StartBlock(ctx, p)
	if err != nil {
		return domain.Cursor{}, err
	}
	report.StartBlock = block.Height

	if v.opts.Chain != nil {
		ref := near.AtHeight(block.Height)
		if block.Hash != "" {
			ref = near.AtHash(block.Hash)
		}
		onChain, err := v.opts.Chain.Block(ctx, ref)
		if err != nil {
			return domain.Cursor{}, fmt.Errorf("start block %d on chain: %w", block.Height, err)
		}
		if onChain.Height != block.Height {
			report.diverge(CheckStartBlock, block.Height,
				fmt.Sprintf("height %d", onChain.Height), fmt.Sprintf("height %d", block.Height))
		}
		if onChain.Timestamp != block.Timestamp {
			report.diverge(CheckStartBlock, block.Height,
				fmt.Sprintf("timestamp %d", onChain.Timestamp), fmt.Sprintf("timestamp %d", block.Timestamp))
		}
	}

	c := domain.StartCursor(*block, v.opts.PageLimit)
	return c, c.Validate()
}

func (v *HistoryVerifier) log(r *Report) {
	ev := v.logger.Info()
	if !r.Match() {
		ev = v.logger.Warn()
	}
	ev.Str("account", r.Account).
		Str("asset", r.Asset).
		Int("pages", r.Pages).
		Int("items", r.Items).
		Int("oracle_checks", r.OracleChecks).
		Int("divergences", len(r.Divergences)).
		Bool("truncated", r.Truncated).
		Msg("history verified")
}
