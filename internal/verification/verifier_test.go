package verification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"balance-history/internal/domain"
	"balance-history/internal/history"
	"balance-history/internal/near"
	"balance-history/internal/near/stub"
	"balance-history/internal/numeric"
	"balance-history/internal/storage/memory"
)

const (
	token   = "usdt.near"
	account = "alice.near"
)

// replayOracle answers balances by replaying events up to a height.
// Heights in override answer with a fixed value instead.
type replayOracle struct {
	events   []*domain.FTEvent
	override map[uint64]uint64
}

func (o *replayOracle) BalanceAt(_ context.Context, _, acc string, height uint64) (numeric.U128, error) {
	if v, ok := o.override[height]; ok {
		return numeric.U128FromUint64(v), nil
	}
	var balance int64
	for _, e := range o.events {
		h, _ := numeric.ToUint64(e.BlockHeight)
		if h > height {
			continue
		}
		amount, _ := numeric.ToUint64(e.Amount)
		if e.OldOwnerID == acc {
			balance -= int64(amount)
		}
		if e.NewOwnerID == acc {
			balance += int64(amount)
		}
	}
	return numeric.U128FromUint64(uint64(balance)), nil
}

// setup stores blocks 1..10 and a token history for alice with events at
// heights 1, 2, 3 (three events), 6 and 8.
func setup(t *testing.T) (*memory.Backend, *replayOracle) {
	t.Helper()

	backend := memory.NewBackend()
	for h := uint64(1); h <= 10; h++ {
		if err := backend.Blocks.Add(&domain.Block{Height: h, Timestamp: h * 1000}); err != nil {
			t.Fatalf("add block: %v", err)
		}
	}

	ev := func(h int, kind, from, to, amount string) *domain.FTEvent {
		return &domain.FTEvent{
			BlockHeight:    fmt.Sprint(h),
			BlockTimestamp: fmt.Sprint(h * 1000),
			Amount:         amount,
			EventKind:      kind,
			OldOwnerID:     from,
			NewOwnerID:     to,
		}
	}
	events := []*domain.FTEvent{
		ev(1, "MINT", "", account, "100"),
		ev(2, "TRANSFER", account, "bob.near", "30"),
		ev(3, "TRANSFER", "bob.near", account, "5"),
		ev(3, "TRANSFER", account, "carol.near", "10"),
		ev(3, "TRANSFER", "carol.near", account, "1"),
		ev(6, "TRANSFER", "dave.near", account, "50"),
		ev(8, "BURN", account, "", "20"),
	}
	if err := backend.FTEvents.Add(token, events...); err != nil {
		t.Fatalf("add events: %v", err)
	}
	return backend, &replayOracle{events: events}
}

func TestVerifyFT_ConsistentHistory(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
	v := NewHistoryVerifier(service, oracle, Options{PageLimit: 3}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if err != nil {
		t.Fatalf("VerifyFT: %v", err)
	}
	if !report.Match() {
		t.Fatalf("expected match, got divergences: %+v", report.Divergences)
	}
	if report.Pages != 3 {
		t.Errorf("Pages: expected 3, got %d", report.Pages)
	}
	if report.Items != 7 {
		t.Errorf("Items: expected 7, got %d", report.Items)
	}
	// blocks 8, 6, 3, 2, 1
	if report.OracleChecks != 5 {
		t.Errorf("OracleChecks: expected 5, got %d", report.OracleChecks)
	}
	if report.Truncated {
		t.Error("expected a complete walk")
	}
}

func TestVerifyFT_OracleDivergence(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())

	// The verifier's oracle disagrees with the chain at height 6 only.
	lying := &replayOracle{events: oracle.events, override: map[uint64]uint64{6: 999}}
	v := NewHistoryVerifier(service, lying, Options{PageLimit: 3}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if err != nil {
		t.Fatalf("VerifyFT: %v", err)
	}
	if len(report.Divergences) != 1 {
		t.Fatalf("expected 1 divergence, got %+v", report.Divergences)
	}
	d := report.Divergences[0]
	if d.Check != CheckOracle || d.BlockHeight != 6 {
		t.Errorf("unexpected divergence %+v", d)
	}
	if d.Expected != "999" || d.Actual != "116" {
		t.Errorf("expected 999 vs 116, got %s vs %s", d.Expected, d.Actual)
	}
}

func TestVerifyFT_SampleEvery(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
	v := NewHistoryVerifier(service, oracle, Options{PageLimit: 100, SampleEvery: 2}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if err != nil {
		t.Fatalf("VerifyFT: %v", err)
	}
	// blocks 8, 3, 1
	if report.OracleChecks != 3 {
		t.Errorf("OracleChecks: expected 3, got %d", report.OracleChecks)
	}
}

func TestVerifyFT_MaxPages(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
	v := NewHistoryVerifier(service, oracle, Options{PageLimit: 2, MaxPages: 1}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if err != nil {
		t.Fatalf("VerifyFT: %v", err)
	}
	if report.Pages != 1 || !report.Truncated {
		t.Errorf("expected one truncated page, got pages=%d truncated=%v", report.Pages, report.Truncated)
	}
}

func TestVerifyFT_NoOracle(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
	v := NewHistoryVerifier(service, nil, Options{}, zerolog.Nop())

	if _, err := v.VerifyFT(context.Background(), token, account, history.StartParams{}); err == nil {
		t.Fatal("expected error without an oracle")
	}
}

// pagedSource serves fixed token pages.
type pagedSource struct {
	pages []*history.CoinPage
	err   error
}

func (s *pagedSource) StartBlock(context.Context, history.StartParams) (*domain.Block, error) {
	return &domain.Block{Height: 10, Timestamp: 10000}, nil
}

func (s *pagedSource) NativeHistory(context.Context, string, domain.Cursor) (*history.NativePage, error) {
	return nil, errors.New("not served")
}

func (s *pagedSource) FTHistory(_ context.Context, _, _ string, c domain.Cursor) (*history.CoinPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	i := int(10 - c.BlockHeight)
	return s.pages[i], nil
}

func TestVerifyFT_ContinuityDivergence(t *testing.T) {
	item := func(height, balance uint64, delta int64) domain.CoinHistoryItem {
		return domain.CoinHistoryItem{
			ActionKind:          "TRANSFER",
			DeltaBalance:        numeric.I128FromInt64(delta),
			Balance:             numeric.U128FromUint64(balance),
			BlockHeight:         height,
			BlockTimestampNanos: height * 1000,
		}
	}
	source := &pagedSource{pages: []*history.CoinPage{
		{
			Items: []domain.CoinHistoryItem{item(9, 10, 5)},
			Next:  &domain.Cursor{BlockHeight: 9, BlockTimestamp: 9000, Limit: 1},
		},
		// the previous page ended before a balance of 5
		{Items: []domain.CoinHistoryItem{item(4, 7, 7)}},
	}}
	oracle := &replayOracle{override: map[uint64]uint64{9: 10, 4: 7}}
	v := NewHistoryVerifier(source, oracle, Options{PageLimit: 1}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if err != nil {
		t.Fatalf("VerifyFT: %v", err)
	}
	if len(report.Divergences) != 1 {
		t.Fatalf("expected 1 divergence, got %+v", report.Divergences)
	}
	d := report.Divergences[0]
	if d.Check != CheckContinuity || d.BlockHeight != 4 || d.Expected != "5" || d.Actual != "7" {
		t.Errorf("unexpected divergence %+v", d)
	}
}

func TestVerifyFT_SourceError(t *testing.T) {
	sourceErr := errors.New("storage down")
	v := NewHistoryVerifier(&pagedSource{err: sourceErr}, &replayOracle{}, Options{}, zerolog.Nop())

	report, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error, got %v", err)
	}
	if report == nil || report.Pages != 0 {
		t.Errorf("expected an empty partial report, got %+v", report)
	}
}

func TestVerifyNative(t *testing.T) {
	native := func(h int, delta, available string) *domain.NativeBalanceChange {
		return &domain.NativeBalanceChange{
			DeltaAvailable:    delta,
			DeltaStaked:       "0",
			AbsoluteAvailable: available,
			AbsoluteStaked:    "10",
			Cause:             "TRANSACTION",
			BlockTimestamp:    fmt.Sprint(h * 1000),
			BlockHeight:       fmt.Sprint(h),
		}
	}

	tests := []struct {
		name        string
		rows        []*domain.NativeBalanceChange
		divergences int
	}{
		{
			name: "continuous",
			rows: []*domain.NativeBalanceChange{
				native(2, "100", "100"),
				native(4, "-40", "60"),
				native(7, "5", "65"),
			},
		},
		{
			// total 60 at block 4 but block 7 started from 70
			name: "gap between pages",
			rows: []*domain.NativeBalanceChange{
				native(2, "100", "100"),
				native(4, "-50", "50"),
				native(7, "5", "65"),
			},
			divergences: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, oracle := setup(t)
			if err := backend.BalanceChanges.Add(account, tt.rows...); err != nil {
				t.Fatalf("add rows: %v", err)
			}
			service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
			v := NewHistoryVerifier(service, nil, Options{PageLimit: 1}, zerolog.Nop())

			report, err := v.VerifyNative(context.Background(), account, history.StartParams{})
			if err != nil {
				t.Fatalf("VerifyNative: %v", err)
			}
			if report.Pages != 3 || report.Items != 3 {
				t.Errorf("expected 3 pages of 1 item, got pages=%d items=%d", report.Pages, report.Items)
			}
			if len(report.Divergences) != tt.divergences {
				t.Fatalf("expected %d divergences, got %+v", tt.divergences, report.Divergences)
			}
			if tt.divergences > 0 {
				d := report.Divergences[0]
				if d.Check != CheckContinuity || d.BlockHeight != 4 || d.Expected != "70" || d.Actual != "60" {
					t.Errorf("unexpected divergence %+v", d)
				}
			}
		})
	}
}

func TestVerify_StartBlockAgainstChain(t *testing.T) {
	// 32 zero bytes
	const hash = "11111111111111111111111111111111"

	tests := []struct {
		name     string
		indexed  *domain.Block // replaces block 10 when set
		onChain  *near.BlockHeader
		expected []string
	}{
		{
			name:    "matches by height",
			onChain: &near.BlockHeader{Height: 10, Timestamp: 10000, Hash: hash},
		},
		{
			name:     "timestamp differs",
			onChain:  &near.BlockHeader{Height: 10, Timestamp: 10500, Hash: hash},
			expected: []string{"timestamp 10500"},
		},
		{
			name:     "hash belongs to another height",
			indexed:  &domain.Block{Height: 10, Timestamp: 10000, Hash: hash},
			onChain:  &near.BlockHeader{Height: 11, Timestamp: 10000, Hash: hash},
			expected: []string{"height 11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, oracle := setup(t)
			if tt.indexed != nil {
				backend.Blocks = memory.NewBlockStore()
				if err := backend.Blocks.Add(tt.indexed); err != nil {
					t.Fatalf("add block: %v", err)
				}
			}
			client := stub.NewRPCClient()
			client.AddBlock(tt.onChain)

			service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
			v := NewHistoryVerifier(service, nil, Options{
				PageLimit: 100,
				Chain:     near.NewOracle(client, zerolog.Nop()),
			}, zerolog.Nop())

			report, err := v.VerifyNative(context.Background(), account, history.StartParams{})
			if err != nil {
				t.Fatalf("VerifyNative: %v", err)
			}
			if report.StartBlock != 10 {
				t.Errorf("StartBlock: expected 10, got %d", report.StartBlock)
			}
			if len(report.Divergences) != len(tt.expected) {
				t.Fatalf("expected %d divergences, got %+v", len(tt.expected), report.Divergences)
			}
			for i, want := range tt.expected {
				d := report.Divergences[i]
				if d.Check != CheckStartBlock || d.Expected != want {
					t.Errorf("divergence %d: expected %s %q, got %+v", i, CheckStartBlock, want, d)
				}
			}
		})
	}
}

func TestVerify_StartBlockUnknownOnChain(t *testing.T) {
	backend, oracle := setup(t)
	service := history.NewService(backend.Readers(), oracle, zerolog.Nop())
	v := NewHistoryVerifier(service, oracle, Options{
		Chain: near.NewOracle(stub.NewRPCClient(), zerolog.Nop()),
	}, zerolog.Nop())

	_, err := v.VerifyFT(context.Background(), token, account, history.StartParams{})
	if !errors.Is(err, near.ErrChainQuery) {
		t.Fatalf("expected chain query error, got %v", err)
	}
}
