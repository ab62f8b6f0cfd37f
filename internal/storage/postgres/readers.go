package postgres

import "balance-history/internal/storage"

// NewReaders wires the Postgres readers. Token events and blocks live in the
// explorer database, native balance changes in the balances database; both
// pools may point at the same database.
func NewReaders(explorer, balances *Pool) storage.Readers {
	return storage.Readers{
		BalanceChanges: NewBalanceChangeStore(balances),
		FTEvents:       NewFTEventStore(explorer),
		Blocks:         NewBlockStore(explorer),
	}
}
