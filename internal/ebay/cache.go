package ebay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raine/estate-pricer/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedSearcher wraps a Searcher with a comps cache.
// Only lookups that found priced sales are cached, so outages and empty
// results are retried on the next run.
type CachedSearcher struct {
	inner Searcher
	store storage.Store
	ttl   time.Duration
}

var _ Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher creates a cached searcher. A ttl of zero never expires.
func NewCachedSearcher(inner Searcher, store storage.Store, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{inner: inner, store: store, ttl: ttl}
}

func (c *CachedSearcher) Search(ctx context.Context, q Query) (Lookup, error) {
	key := cacheKey(q)

	entry, err := c.store.GetCompsCache(key, c.ttl)
	if err != nil {
		log.Warn().Err(err).Str("query", q.Keywords).Msg("comps cache lookup failed")
	} else if entry != nil {
		log.Debug().Str("query", q.Keywords).Time("queriedAt", entry.QueriedAt).Msg("comps cache hit")
		return FromComps(entry.Comps), nil
	}

	lookup, err := c.inner.Search(ctx, q)
	if err != nil {
		return lookup, err
	}

	if comps := lookup.Comps(); comps != nil {
		if err := c.store.SetCompsCache(key, *comps); err != nil {
			log.Warn().Err(err).Str("query", q.Keywords).Msg("failed to cache comps")
		}
	}
	return lookup, nil
}

func cacheKey(q Query) string {
	keywords := strings.Join(strings.Fields(strings.ToLower(q.Keywords)), " ")
	return fmt.Sprintf("%s|%s|%g|%g", keywords, q.CategoryID, q.MinValue, q.MaxValue)
}
