package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"balance-history/internal/storage"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// read-side schema. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	retry := storage.DefaultRetryPolicy()
	retry.RetryDelay = 10 * time.Millisecond

	pool, err := NewPool(ctx, dsn, WithName("test"), WithMaxConns(4), WithRetryPolicy(retry))
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySchema executes testdata/schema.sql.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	sql, err := os.ReadFile(filepath.Join("testdata", "schema.sql"))
	require.NoError(t, err, "failed to read schema")

	_, err = pool.Exec(ctx, string(sql))
	require.NoError(t, err, "failed to apply schema")
}

// insertBlock adds a block with a synthetic hash.
func insertBlock(t *testing.T, pool *Pool, height, ts uint64) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO blocks (block_height, block_hash, prev_block_hash, block_timestamp)
		VALUES ($1::numeric, $2, $3, $4::numeric)
	`, fmt.Sprint(height), fmt.Sprintf("hash-%d", height), fmt.Sprintf("hash-%d", height-1), fmt.Sprint(ts))
	require.NoError(t, err, "insert block %d", height)
}

// ftEventRow describes one token event fixture.
type ftEventRow struct {
	receipt  string
	ts       uint64
	index    int
	contract string
	amount   string
	kind     string
	from, to string
	status   string
}

func insertFTEvent(t *testing.T, pool *Pool, e ftEventRow) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO execution_outcomes (receipt_id, executed_in_block_hash, executed_in_block_timestamp, status)
		VALUES ($1, 'hash', $2::numeric, $3)
	`, e.receipt, fmt.Sprint(e.ts), e.status)
	require.NoError(t, err, "insert outcome %s", e.receipt)

	_, err = pool.Exec(ctx, `
		INSERT INTO assets__fungible_token_events (
			emitted_for_receipt_id, emitted_at_block_timestamp, emitted_in_shard_id,
			emitted_index_of_event_entry_in_shard, emitted_by_contract_account_id,
			amount, event_kind, token_old_owner_account_id, token_new_owner_account_id
		) VALUES ($1, $2::numeric, 0, $3, $4, $5, $6, $7, $8)
	`, e.receipt, fmt.Sprint(e.ts), e.index, e.contract, e.amount, e.kind, e.from, e.to)
	require.NoError(t, err, "insert ft event %s", e.receipt)
}

// balanceChangeRow describes one native balance change fixture.
type balanceChangeRow struct {
	index             int
	ts, height        uint64
	account           string
	involved          *string
	deltaNonstaked    string
	absoluteNonstaked string
	deltaStaked       string
	absoluteStaked    string
}

func insertBalanceChange(t *testing.T, pool *Pool, r balanceChangeRow) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO balance_changes (
			event_index, block_timestamp, block_height, affected_account_id, involved_account_id,
			direction, cause, status,
			delta_nonstaked_amount, absolute_nonstaked_amount, delta_staked_amount, absolute_staked_amount
		) VALUES ($1, $2::numeric, $3::numeric, $4, $5, 'INBOUND', 'TRANSACTION', 'SUCCESS',
			$6::numeric, $7::numeric, $8::numeric, $9::numeric)
	`, r.index, fmt.Sprint(r.ts), fmt.Sprint(r.height), r.account, r.involved,
		r.deltaNonstaked, r.absoluteNonstaked, r.deltaStaked, r.absoluteStaked)
	require.NoError(t, err, "insert balance change %d", r.index)
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
