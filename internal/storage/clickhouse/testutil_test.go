package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"balance-history/internal/storage"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start ClickHouse container
	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	retry := storage.DefaultRetryPolicy()
	retry.RetryDelay = 10 * time.Millisecond

	conn, err := NewConn(ctx, dsn, WithRetryPolicy(retry))
	require.NoError(t, err)

	applySchema(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// applySchema executes each statement of testdata/schema.sql. The native
// protocol accepts a single statement per Exec.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	content, err := os.ReadFile(filepath.Join("testdata", "schema.sql"))
	require.NoError(t, err, "failed to read schema")

	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(ctx, stmt), "failed to apply schema statement")
	}
}

func insertBlocks(t *testing.T, conn *Conn, heights ...uint64) {
	t.Helper()
	ctx := context.Background()

	batch, err := conn.PrepareBatch(ctx, `INSERT INTO blocks (block_height, block_timestamp, block_hash)`)
	require.NoError(t, err)
	for _, h := range heights {
		require.NoError(t, batch.Append(h, h*1000, fmt.Sprintf("hash-%d", h)))
	}
	require.NoError(t, batch.Send())
}

type ftEventRow struct {
	contract string
	height   uint64
	index    uint32
	amount   string
	kind     string
	from, to string
}

func insertFTEvents(t *testing.T, conn *Conn, rows ...ftEventRow) {
	t.Helper()
	ctx := context.Background()

	batch, err := conn.PrepareBatch(ctx, `
		INSERT INTO ft_events (
			contract_id, block_height, block_timestamp, shard_id, event_index,
			receipt_id, amount, event_kind, old_owner_id, new_owner_id
		)
	`)
	require.NoError(t, err)
	for i, r := range rows {
		err := batch.Append(
			r.contract, r.height, r.height*1000, uint64(0), r.index,
			fmt.Sprintf("receipt-%d", i), decimal.RequireFromString(r.amount), r.kind, r.from, r.to,
		)
		require.NoError(t, err)
	}
	require.NoError(t, batch.Send())
}

type balanceChangeRow struct {
	account           string
	index             uint64
	height            uint64
	involved          *string
	deltaNonstaked    string
	deltaStaked       string
	absoluteNonstaked string
	absoluteStaked    string
}

func insertBalanceChanges(t *testing.T, conn *Conn, rows ...balanceChangeRow) {
	t.Helper()
	ctx := context.Background()

	batch, err := conn.PrepareBatch(ctx, `
		INSERT INTO balance_changes (
			affected_account_id, event_index, block_timestamp, block_height, involved_account_id, cause,
			delta_nonstaked_amount, delta_staked_amount, absolute_nonstaked_amount, absolute_staked_amount
		)
	`)
	require.NoError(t, err)
	for _, r := range rows {
		err := batch.Append(
			r.account, r.index, r.height*1000, r.height, r.involved, "TRANSACTION",
			decimal.RequireFromString(r.deltaNonstaked), decimal.RequireFromString(r.deltaStaked),
			decimal.RequireFromString(r.absoluteNonstaked), decimal.RequireFromString(r.absoluteStaked),
		)
		require.NoError(t, err)
	}
	require.NoError(t, batch.Send())
}

// ptr is a helper to create pointers for test values
func ptr[T any](v T) *T {
	return &v
}
