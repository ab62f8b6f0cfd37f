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

type ftEntry struct {
	event     domain.FTEvent
	timestamp uint64
	seq       int
}

// FTEventStore is an in-memory implementation of storage.FTEventReader.
// It holds successful events only.
type FTEventStore struct {
	mu   sync.RWMutex
	seq  int
	data map[string][]ftEntry // keyed by contract
}

var _ storage.FTEventReader = (*FTEventStore)(nil)

// NewFTEventStore creates a new in-memory token event store.
func NewFTEventStore() *FTEventStore {
	return &FTEventStore{
		data: make(map[string][]ftEntry),
	}
}

// Add appends events emitted by contract in chain order, oldest first.
func (s *FTEventStore) Add(contract string, events ...*domain.FTEvent) error {
	if contract == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		ts, err := numeric.ToUint64(e.BlockTimestamp)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		s.seq++
		s.data[contract] = append(s.data[contract], ftEntry{event: *e, timestamp: ts, seq: s.seq})
	}
	return nil
}

// FTHistory returns events of contract involving account and older than
// c.BlockTimestamp, newest first.
func (s *FTEventStore) FTHistory(_ context.Context, contract, account string, c domain.Cursor) ([]*domain.FTEvent, error) {
	if c.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []ftEntry
	for _, e := range s.data[contract] {
		if e.timestamp >= c.BlockTimestamp {
			continue
		}
		if e.event.OldOwnerID == account || e.event.NewOwnerID == account {
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
	result := make([]*domain.FTEvent, len(matched))
	for i := range matched {
		eventCopy := matched[i].event
		result[i] = &eventCopy
	}
	return result, nil
}
