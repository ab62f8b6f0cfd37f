// Package main runs the balance history HTTP service:
// - GET /accounts/{account_id}/balances/NEAR/history
// - GET /accounts/{account_id}/balances/FT/{contract_account_id}/history
// - GET /health, GET /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"balance-history/internal/api"
	"balance-history/internal/config"
	"balance-history/internal/history"
	"balance-history/internal/metadata"
	"balance-history/internal/near"
	"balance-history/internal/observability"
	"balance-history/internal/storage/backend"
)

// statsInterval is how often pool statistics are published.
const statsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := observability.NewLogger("server")
		boot.Fatal().Err(err).Msg("load config")
	}

	level := observability.ParseLogLevel(cfg.LogLevel)
	logger := observability.NewLoggerWithLevel("server", level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, level, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, level zerolog.Level, logger zerolog.Logger) error {
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	rpc := near.NewHTTPClient(cfg.RPCURL,
		near.WithTimeout(cfg.RPCTimeout),
		near.WithMaxRetries(cfg.RPCMaxRetries),
		near.WithRateLimit(cfg.RPCRateLimit, rateBurst(cfg.RPCRateLimit)),
	)
	oracle := near.NewOracle(rpc, observability.NewLoggerWithLevel("near", level))

	meta, err := metadata.NewProvider(oracle, cfg.MetadataCacheSize)
	if err != nil {
		return err
	}

	svc := history.NewService(store.Readers, oracle, observability.NewLoggerWithLevel("history", level))

	mux := http.NewServeMux()
	api.NewServer(svc, meta, api.Limits{
		Default: cfg.HistoryDefaultLimit,
		Max:     cfg.HistoryMaxLimit,
	}, observability.NewLoggerWithLevel("api", level)).Register(mux)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Debug().Err(err).Msg("write health response")
		}
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go reportPoolStats(ctx, store.Reporters)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("backend", cfg.Backend).
			Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("received signal, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func reportPoolStats(ctx context.Context, reporters []backend.StatsReporter) {
	if len(reporters) == 0 {
		return
	}
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range reporters {
				r.ReportStats()
			}
		}
	}
}

// rateBurst allows short bursts of up to one second of traffic.
func rateBurst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}
