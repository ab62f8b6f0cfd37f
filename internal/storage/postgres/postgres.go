package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"balance-history/internal/observability"
	"balance-history/internal/storage"
)

// DefaultMaxConns is the default pool size.
const DefaultMaxConns = 97

// Pool wraps pgxpool.Pool for dependency injection. Reads through a Pool
// are retried according to its retry policy and recorded in metrics.
type Pool struct {
	*pgxpool.Pool
	name  string
	retry storage.RetryPolicy
}

type poolOptions struct {
	name     string
	maxConns int32
	retry    storage.RetryPolicy
}

// PoolOption configures NewPool.
type PoolOption func(*poolOptions)

// WithName sets the database label used in metrics.
func WithName(name string) PoolOption {
	return func(o *poolOptions) {
		o.name = name
	}
}

// WithMaxConns sets the maximum number of pooled connections.
func WithMaxConns(n int32) PoolOption {
	return func(o *poolOptions) {
		o.maxConns = n
	}
}

// WithRetryPolicy sets the retry policy for reads.
func WithRetryPolicy(p storage.RetryPolicy) PoolOption {
	return func(o *poolOptions) {
		o.retry = p
	}
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	o := poolOptions{
		name:     "postgres",
		maxConns: DefaultMaxConns,
		retry:    storage.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if o.maxConns > 0 {
		config.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if o.retry.OnRetry == nil {
		name := o.name
		o.retry.OnRetry = func(op string, _ int, _ error) {
			observability.RecordDBRetry(name, op)
		}
	}

	return &Pool{Pool: pool, name: o.name, retry: o.retry}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Name returns the database label of the pool.
func (p *Pool) Name() string {
	return p.name
}

// ReportStats publishes connection counts to metrics.
func (p *Pool) ReportStats() {
	s := p.Stat()
	observability.UpdateDBConnections(p.name, s.TotalConns(), s.IdleConns())
}

// read runs fn under the pool's retry policy and records the query.
func (p *Pool) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := p.retry.Do(ctx, op, isRetryableError, fn)
	if errors.Is(err, storage.ErrNotFound) {
		observability.RecordDBQuery(p.name, op, time.Since(start).Seconds(), nil)
		return err
	}
	observability.RecordDBQuery(p.name, op, time.Since(start).Seconds(), err)
	return err
}

// PostgreSQL error codes
const (
	pgErrClassConnection      = "08"    // connection_exception
	pgErrSerializationFailure = "40001" // serialization_failure
	pgErrDeadlockDetected     = "40P01" // deadlock_detected
	pgErrTooManyConnections   = "53300" // too_many_connections
	pgErrQueryCanceled        = "57014" // query_canceled, raised by statement_timeout
	pgErrAdminShutdown        = "57P01" // admin_shutdown
	pgErrCrashShutdown        = "57P02" // crash_shutdown
	pgErrCannotConnectNow     = "57P03" // cannot_connect_now
)

// isRetryableError reports whether err is worth another attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgErrClassConnection {
			return true
		}
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrTooManyConnections,
			pgErrQueryCanceled, pgErrAdminShutdown, pgErrCrashShutdown, pgErrCannotConnectNow:
			return true
		}
		return false
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
