// Package verification audits reconstructed balance history. It walks an
// account's history page by page and checks it against independent
// sources: the chain state at block boundaries and the continuity of
// balances across page boundaries.
package verification

import (
	"context"

	"balance-history/internal/history"
)

// Kinds of checks.
const (
	CheckOracle     = "oracle_balance"
	CheckContinuity = "page_continuity"
	CheckStartBlock = "start_block"
)

// Divergence is a mismatch between the reconstructed history and an
// independent source.
type Divergence struct {
	Check       string `json:"check"`
	BlockHeight uint64 `json:"block_height"`
	Expected    string `json:"expected"` // independent value
	Actual      string `json:"actual"`   // reconstructed value
}

// Report summarizes one verification walk.
type Report struct {
	Account      string       `json:"account"`
	Asset        string       `json:"asset"`
	StartBlock   uint64       `json:"start_block"`
	Pages        int          `json:"pages"`
	Items        int          `json:"items"`
	OracleChecks int          `json:"oracle_checks"`
	Truncated    bool         `json:"truncated"` // stopped at the page cap
	Divergences  []Divergence `json:"divergences"`
}

// Match reports whether no divergence was found.
func (r *Report) Match() bool {
	return len(r.Divergences) == 0
}

func (r *Report) diverge(check string, height uint64, expected, actual string) {
	r.Divergences = append(r.Divergences, Divergence{
		Check:       check,
		BlockHeight: height,
		Expected:    expected,
		Actual:      actual,
	})
}

// Verifier interface for history verification.
type Verifier interface {
	// VerifyFT walks the token history of account on contract from start.
	VerifyFT(ctx context.Context, contract, account string, start history.StartParams) (*Report, error)

	// VerifyNative walks the native coin history of account from start.
	VerifyNative(ctx context.Context, account string, start history.StartParams) (*Report, error)
}
