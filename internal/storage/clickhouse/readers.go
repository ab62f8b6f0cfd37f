package clickhouse

import "balance-history/internal/storage"

// NewReaders wires the ClickHouse readers over one connection.
func NewReaders(conn *Conn) storage.Readers {
	return storage.Readers{
		BalanceChanges: NewBalanceChangeStore(conn),
		FTEvents:       NewFTEventStore(conn),
		Blocks:         NewBlockStore(conn),
	}
}
