package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/sanonone/wikiwalk/pkg/linkcache"
	"github.com/sanonone/wikiwalk/pkg/metrics"
)

// LinkProvider answers which pages a page links to. Implementations filter
// out namespaced titles and self-links; the engine uses the result as is.
type LinkProvider interface {
	Exists(ctx context.Context, title string) (bool, error)
	// Links returns the outbound links of title, empty if the page does not exist.
	Links(ctx context.Context, title string) ([]string, error)
}

// LinkSource resolves a page's links through the cache, falling back to the
// provider on a miss and writing the answer back. It is shared by every run
// that uses the same cache and is safe for concurrent use.
type LinkSource struct {
	cache    linkcache.Cache
	provider LinkProvider
	logger   *slog.Logger

	// inflight collapses concurrent misses on one title into one provider call.
	inflight singleflight.Group
}

// NewLinkSource creates a LinkSource.
func NewLinkSource(cache linkcache.Cache, provider LinkProvider, logger *slog.Logger) *LinkSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkSource{
		cache:    cache,
		provider: provider,
		logger:   logger,
	}
}

// Links returns the links of title. A title found in the cache never reaches
// the provider; a fetched title is returned as the cache stored it.
func (s *LinkSource) Links(ctx context.Context, title string) ([]string, error) {
	links, ok, err := s.cache.Get(title)
	if err != nil {
		return nil, fmt.Errorf("read link cache for %q: %w", title, err)
	}
	metrics.ObserveCache(ok)
	if ok {
		return links, nil
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// on its own context.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(title, func() (interface{}, error) {
		// A flight that finished just before this one started already stored it.
		if links, ok, err := s.cache.Get(title); err != nil {
			return nil, fmt.Errorf("read link cache for %q: %w", title, err)
		} else if ok {
			return links, nil
		}

		s.logger.Debug("link cache miss, fetching", "title", title)
		fetched, err := s.provider.Links(fetchCtx, title)
		metrics.ObserveFetch(err)
		if err != nil {
			return nil, fmt.Errorf("%w: fetch links for %q: %w", ErrProviderUnavailable, title, err)
		}

		stored, err := s.cache.Put(title, fetched)
		if err != nil {
			return nil, fmt.Errorf("write link cache for %q: %w", title, err)
		}
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for links of %q: %w", ErrCancelled, title, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]string)), nil
	}
}

// Exists forwards to the provider.
func (s *LinkSource) Exists(ctx context.Context, title string) (bool, error) {
	ok, err := s.provider.Exists(ctx, title)
	if err != nil {
		return false, fmt.Errorf("%w: check %q: %w", ErrProviderUnavailable, title, err)
	}
	return ok, nil
}

// Cache returns the underlying cache.
func (s *LinkSource) Cache() linkcache.Cache {
	return s.cache
}
