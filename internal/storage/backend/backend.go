// Package backend opens the configured storage backend.
package backend

import (
	"context"
	"fmt"

	"balance-history/internal/config"
	"balance-history/internal/storage"
	chstore "balance-history/internal/storage/clickhouse"
	"balance-history/internal/storage/memory"
	pgstore "balance-history/internal/storage/postgres"
)

// StatsReporter publishes connection pool statistics.
type StatsReporter interface {
	ReportStats()
}

// Backend holds the readers of one storage backend and its connections.
type Backend struct {
	Readers   storage.Readers
	Reporters []StatsReporter
	closers   []func()
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// RetryPolicy returns the read retry policy configured in cfg.
func RetryPolicy(cfg config.Config) storage.RetryPolicy {
	retry := storage.DefaultRetryPolicy()
	retry.MaxRetries = cfg.DBMaxRetries
	retry.RetryDelay = cfg.DBRetryDelay
	return retry
}

// Open connects to the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	retry := RetryPolicy(cfg)

	switch cfg.Backend {
	case config.BackendMemory:
		return &Backend{Readers: memory.NewBackend().Readers()}, nil

	case config.BackendClickHouse:
		conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN, chstore.WithRetryPolicy(retry))
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return &Backend{
			Readers: chstore.NewReaders(conn),
			closers: []func(){func() { conn.Close() }},
		}, nil

	case config.BackendPostgres:
		explorer, err := pgstore.NewPool(ctx, cfg.ExplorerDatabaseURL,
			pgstore.WithName("explorer"),
			pgstore.WithMaxConns(cfg.DatabaseMaxConnections),
			pgstore.WithRetryPolicy(retry),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to explorer database: %w", err)
		}
		balances, err := pgstore.NewPool(ctx, cfg.BalancesDatabaseURL,
			pgstore.WithName("balances"),
			pgstore.WithMaxConns(cfg.DatabaseMaxConnections),
			pgstore.WithRetryPolicy(retry),
		)
		if err != nil {
			explorer.Close()
			return nil, fmt.Errorf("connect to balances database: %w", err)
		}
		return &Backend{
			Readers:   pgstore.NewReaders(explorer, balances),
			Reporters: []StatsReporter{explorer, balances},
			closers:   []func(){explorer.Close, balances.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
