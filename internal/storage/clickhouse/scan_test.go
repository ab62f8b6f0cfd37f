package clickhouse

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balance-history/internal/numeric"
)

// staticRows replays fixed values through chRows.
type staticRows struct {
	rows [][]interface{}
	pos  int
}

func (r *staticRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *staticRows) Scan(dest ...interface{}) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *uint64:
			*d = v.(uint64)
		case *string:
			*d = v.(string)
		case **string:
			*d, _ = v.(*string)
		case *decimal.Decimal:
			*d = v.(decimal.Decimal)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func (r *staticRows) Err() error { return nil }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestScanFTEvents_RangeChecksAmount(t *testing.T) {
	const maxU128 = "340282366920938463463374607431768211455"

	events, err := scanFTEvents(&staticRows{rows: [][]interface{}{
		{uint64(2), uint64(2000), dec(t, "30"), "TRANSFER", "alice.near", "bob.near"},
		{uint64(1), uint64(1000), dec(t, "-5"), "TRANSFER", "bob.near", "alice.near"},
	}})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "30", events[0].Amount)
	// negative amounts are left for the engine to reject
	assert.Equal(t, "-5", events[1].Amount)

	_, err = scanFTEvents(&staticRows{rows: [][]interface{}{
		{uint64(1), uint64(1000), dec(t, maxU128), "MINT", "", "alice.near"},
	}})
	assert.ErrorIs(t, err, numeric.ErrOutOfRange)
}

func TestScanBalanceChanges_RangeChecksBalances(t *testing.T) {
	counterparty := "bob.near"
	row := func(deltaNonstaked, absoluteNonstaked string) []interface{} {
		return []interface{}{
			&counterparty,
			dec(t, deltaNonstaked), dec(t, "0"),
			dec(t, absoluteNonstaked), dec(t, "10"),
			"TRANSACTION", uint64(1000), uint64(1),
		}
	}

	changes, err := scanBalanceChanges(&staticRows{rows: [][]interface{}{row("-40", "60")}})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "-40", changes[0].DeltaAvailable)
	assert.Equal(t, "60", changes[0].AbsoluteAvailable)
	assert.Equal(t, "10", changes[0].AbsoluteStaked)
	require.NotNil(t, changes[0].InvolvedAccountID)
	assert.Equal(t, "bob.near", *changes[0].InvolvedAccountID)

	_, err = scanBalanceChanges(&staticRows{rows: [][]interface{}{row("-40", "-1")}})
	assert.ErrorIs(t, err, numeric.ErrOutOfRange)

	_, err = scanBalanceChanges(&staticRows{rows: [][]interface{}{row("1.5", "60")}})
	assert.ErrorIs(t, err, numeric.ErrMalformedNumeric)
}
