// Package main audits the reconstructed balance history of one account
// against the chain, page by page.
//
// Usage:
//
//	verify -account alice.near [-contract usdt.near] [-block-height N] [-limit 100] [-max-pages 0] [-json]
//
// Without -contract the native NEAR history is checked. The indexed start
// block is first compared with the chain by hash. The exit status is 1
// when a divergence is found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"balance-history/internal/config"
	"balance-history/internal/domain"
	"balance-history/internal/history"
	"balance-history/internal/near"
	"balance-history/internal/observability"
	"balance-history/internal/storage/backend"
	"balance-history/internal/verification"
)

func main() {
	account := flag.String("account", "", "Account ID to verify (required)")
	contract := flag.String("contract", "", "FT contract account ID; empty verifies native history")
	blockHeight := flag.Uint64("block-height", 0, "Block height to start from; 0 uses the latest block")
	limit := flag.Int("limit", verification.DefaultPageLimit, "Items per page")
	maxPages := flag.Int("max-pages", 0, "Stop after this many pages; 0 walks the whole history")
	sampleEvery := flag.Int("sample-every", 1, "Check the oracle at every n-th block")
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := observability.NewLogger("verify")

	if _, err := domain.ParseAccountID(*account); err != nil {
		logger.Fatal().Err(err).Msg("--account is required and must be a valid account ID")
	}
	if *contract != "" {
		if _, err := domain.ParseAccountID(*contract); err != nil {
			logger.Fatal().Err(err).Msg("invalid --contract")
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	level := observability.ParseLogLevel(cfg.LogLevel)
	logger = observability.NewLoggerWithLevel("verify", level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open storage")
	}
	defer store.Close()

	rpc := near.NewHTTPClient(cfg.RPCURL,
		near.WithTimeout(cfg.RPCTimeout),
		near.WithMaxRetries(cfg.RPCMaxRetries),
		near.WithRateLimit(cfg.RPCRateLimit, 1),
	)
	oracle := near.NewOracle(rpc, observability.NewLoggerWithLevel("near", level))
	svc := history.NewService(store.Readers, oracle, observability.NewLoggerWithLevel("history", level))

	verifier := verification.NewHistoryVerifier(svc, oracle, verification.Options{
		PageLimit:   *limit,
		MaxPages:    *maxPages,
		SampleEvery: *sampleEvery,
		Chain:       oracle,
	}, logger)

	var start history.StartParams
	if *blockHeight > 0 {
		start.BlockHeight = blockHeight
	}

	var report *verification.Report
	if *contract == "" {
		report, err = verifier.VerifyNative(ctx, *account, start)
	} else {
		report, err = verifier.VerifyFT(ctx, *contract, *account, start)
	}
	if err != nil {
		// Keep what was checked before the failure.
		if report != nil {
			printReport(report, *outputJSON)
		}
		stop()
		store.Close()
		logger.Fatal().Err(err).Msg("verification failed")
	}

	printReport(report, *outputJSON)
	if !report.Match() {
		stop()
		store.Close()
		os.Exit(1)
	}
}

func printReport(r *verification.Report, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Verification Summary ===\n")
	fmt.Printf("Account:        %s\n", r.Account)
	fmt.Printf("Asset:          %s\n", r.Asset)
	fmt.Printf("Start Block:    %d\n", r.StartBlock)
	fmt.Printf("Pages:          %d\n", r.Pages)
	fmt.Printf("Items:          %d\n", r.Items)
	fmt.Printf("Oracle Checks:  %d\n", r.OracleChecks)
	fmt.Printf("Truncated:      %v\n", r.Truncated)
	fmt.Printf("Divergences:    %d\n", len(r.Divergences))
	for _, d := range r.Divergences {
		fmt.Printf("  [%s] block %d: expected %s, got %s\n", d.Check, d.BlockHeight, d.Expected, d.Actual)
	}
	if r.Match() {
		fmt.Printf("Status:         MATCH\n")
	} else {
		fmt.Printf("Status:         DIVERGED\n")
	}
}
