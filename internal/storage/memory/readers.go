package memory

import "balance-history/internal/storage"

// Backend bundles the in-memory stores behind storage.Readers.
type Backend struct {
	BalanceChanges *BalanceChangeStore
	FTEvents       *FTEventStore
	Blocks         *BlockStore
}

// NewBackend creates empty in-memory stores.
func NewBackend() *Backend {
	return &Backend{
		BalanceChanges: NewBalanceChangeStore(),
		FTEvents:       NewFTEventStore(),
		Blocks:         NewBlockStore(),
	}
}

// Readers exposes the stores as storage readers.
func (b *Backend) Readers() storage.Readers {
	return storage.Readers{
		BalanceChanges: b.BalanceChanges,
		FTEvents:       b.FTEvents,
		Blocks:         b.Blocks,
	}
}
