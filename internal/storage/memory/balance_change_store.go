package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
	"balance-history/internal/storage"
)

type nativeEntry struct {
	row       domain.NativeBalanceChange
	timestamp uint64
	seq       int
}

// BalanceChangeStore is an in-memory implementation of storage.BalanceChangeReader.
type BalanceChangeStore struct {
	mu   sync.RWMutex
	seq  int
	data map[string][]nativeEntry // keyed by affected account
}

var _ storage.BalanceChangeReader = (*BalanceChangeStore)(nil)

// NewBalanceChangeStore creates a new in-memory balance change store.
func NewBalanceChangeStore() *BalanceChangeStore {
	return &BalanceChangeStore{
		data: make(map[string][]nativeEntry),
	}
}

// Add appends rows affecting account in chain order, oldest first.
// Rows added later sort as newer within the same block.
func (s *BalanceChangeStore) Add(account string, rows ...*domain.NativeBalanceChange) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		ts, err := numeric.ToUint64(r.BlockTimestamp)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		s.seq++
		// Store a copy to prevent external mutation
		s.data[account] = append(s.data[account], nativeEntry{row: *r, timestamp: ts, seq: s.seq})
	}
	return nil
}

// NativeHistory returns rows older than c.BlockTimestamp, newest first.
func (s *BalanceChangeStore) NativeHistory(_ context.Context, account string, c domain.Cursor) ([]*domain.NativeBalanceChange, error) {
	if c.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []nativeEntry
	for _, e := range s.data[account] {
		if e.timestamp < c.BlockTimestamp {
			matched = append(matched, e)
		}
	}

	// Sort by (timestamp DESC, seq DESC)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].timestamp != matched[j].timestamp {
			return matched[i].timestamp > matched[j].timestamp
		}
		return matched[i].seq > matched[j].seq
	})

	if len(matched) > c.Limit {
		matched = matched[:c.Limit]
	}
	result := make([]*domain.NativeBalanceChange, len(matched))
	for i := range matched {
		rowCopy := matched[i].row
		result[i] = &rowCopy
	}
	return result, nil
}
