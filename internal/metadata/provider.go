// Package metadata serves coin metadata with an LRU cache in front of the
// chain. Metadata is not pinned to a block: a history page shows the
// current name, symbol and decimals of the contract.
package metadata

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"balance-history/internal/domain"
	"balance-history/internal/observability"
)

const (
	// DefaultCacheSize is the number of contracts kept in the cache.
	DefaultCacheSize = 1024

	// DefaultFetchTimeout bounds one shared upstream call.
	DefaultFetchTimeout = 15 * time.Second
)

// Source fetches token metadata, e.g. near.Oracle.
type Source interface {
	FTMetadata(ctx context.Context, contract string) (*domain.CoinMetadata, error)
}

// Provider caches token metadata by contract.
type Provider struct {
	source       Source
	cache        *lru.Cache[string, domain.CoinMetadata]
	group        singleflight.Group
	fetchTimeout time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithFetchTimeout bounds the upstream call shared by concurrent misses.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// NewProvider creates a provider holding up to size contracts.
func NewProvider(source Source, size int, opts ...Option) (*Provider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, domain.CoinMetadata](size)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	p := &Provider{source: source, cache: cache, fetchTimeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Native returns the metadata of the native coin.
func (p *Provider) Native() domain.CoinMetadata {
	return domain.NativeCoinMetadata
}

// FT returns the metadata of contract. Concurrent misses for the same
// contract share one upstream call, which outlives any single caller's
// cancellation but not the fetch timeout. Failures are not cached.
func (p *Provider) FT(ctx context.Context, contract string) (domain.CoinMetadata, error) {
	if meta, ok := p.cache.Get(contract); ok {
		observability.RecordMetadataCache(true)
		return meta, nil
	}
	observability.RecordMetadataCache(false)

	ch := p.group.DoChan(contract, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()

		meta, err := p.source.FTMetadata(fetchCtx, contract)
		if err != nil {
			return nil, err
		}
		p.cache.Add(contract, *meta)
		return *meta, nil
	})

	select {
	case <-ctx.Done():
		return domain.CoinMetadata{}, fmt.Errorf("metadata of %s: %w", contract, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.CoinMetadata{}, fmt.Errorf("metadata of %s: %w", contract, res.Err)
		}
		return res.Val.(domain.CoinMetadata), nil
	}
}
