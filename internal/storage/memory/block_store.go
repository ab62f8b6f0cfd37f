package memory

import (
	"context"
	"sort"
	"sync"

	"balance-history/internal/domain"
	"balance-history/internal/storage"
)

// BlockStore is an in-memory implementation of storage.BlockReader.
type BlockStore struct {
	mu     sync.RWMutex
	blocks []domain.Block // sorted by height ASC
}

var _ storage.BlockReader = (*BlockStore)(nil)

// NewBlockStore creates a new in-memory block store.
func NewBlockStore() *BlockStore {
	return &BlockStore{}
}

// Add inserts blocks. Returns ErrInvalidInput if a height is already present.
func (s *BlockStore) Add(blocks ...*domain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range blocks {
		if b == nil {
			return storage.ErrInvalidInput
		}
		i := sort.Search(len(s.blocks), func(i int) bool { return s.blocks[i].Height >= b.Height })
		if i < len(s.blocks) && s.blocks[i].Height == b.Height {
			return storage.ErrInvalidInput
		}
		s.blocks = append(s.blocks, domain.Block{})
		copy(s.blocks[i+1:], s.blocks[i:])
		s.blocks[i] = *b
	}
	return nil
}

// LatestBlock returns the highest block.
func (s *BlockStore) LatestBlock(_ context.Context) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.blocks) == 0 {
		return nil, storage.ErrNotFound
	}
	b := s.blocks[len(s.blocks)-1]
	return &b, nil
}

// BlockByHeight returns the block at height.
func (s *BlockStore) BlockByHeight(_ context.Context, height uint64) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.blocks), func(i int) bool { return s.blocks[i].Height >= height })
	if i == len(s.blocks) || s.blocks[i].Height != height {
		return nil, storage.ErrNotFound
	}
	b := s.blocks[i]
	return &b, nil
}

// BlockAtOrBefore returns the newest block with timestamp <= ts.
func (s *BlockStore) BlockAtOrBefore(_ context.Context, ts uint64) (*domain.Block, error) {
	return s.newestWhere(func(b domain.Block) bool { return b.Timestamp <= ts })
}

// BlockBefore returns the newest block with timestamp < ts.
func (s *BlockStore) BlockBefore(_ context.Context, ts uint64) (*domain.Block, error) {
	return s.newestWhere(func(b domain.Block) bool { return b.Timestamp < ts })
}

func (s *BlockStore) newestWhere(match func(domain.Block) bool) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.blocks) - 1; i >= 0; i-- {
		if match(s.blocks[i]) {
			b := s.blocks[i]
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}
