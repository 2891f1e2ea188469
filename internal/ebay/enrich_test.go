package ebay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raine/estate-pricer/internal/item"
	"github.com/raine/estate-pricer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher answers from SearchFunc and records every query.
type fakeSearcher struct {
	SearchFunc func(ctx context.Context, q Query) (Lookup, error)

	mu    sync.Mutex
	Calls []Query
}

func (f *fakeSearcher) Search(ctx context.Context, q Query) (Lookup, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, q)
	f.mu.Unlock()
	return f.SearchFunc(ctx, q)
}

func found(count int, median float64) Lookup {
	l := Lookup{Available: true, Count: count, Median: median, RecentSales: []item.Sale{}}
	for range count {
		l.RecentSales = append(l.RecentSales, item.Sale{Price: median})
	}
	return l
}

func TestEnrich(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		switch q.Keywords {
		case "pyrex 401 bowl":
			return found(2, 15), nil
		case "broken":
			return Lookup{}, errors.New("connection reset")
		}
		return Unavailable("rate limited"), nil
	}}

	items := []item.Item{
		{Name: "Pyrex bowl", SearchQuery: "pyrex 401 bowl", EstimatedValueHint: "$10-$30"},
		{Name: "Mystery box", SearchQuery: "  "},
		{Name: "Lamp", SearchQuery: "broken"},
		{Name: "Chair", SearchQuery: "eames chair"},
	}

	results, err := NewEnricher(searcher, EnricherOpts{}).Enrich(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "Pyrex bowl", results[0].Name)
	assert.True(t, results[0].Lookup.Available)
	assert.Equal(t, 15.0, results[0].Lookup.Median)

	assert.Equal(t, "Mystery box", results[1].Name)
	assert.False(t, results[1].Lookup.Available)
	assert.Equal(t, "No search query", results[1].Lookup.Reason)

	assert.False(t, results[2].Lookup.Available)
	assert.Equal(t, "connection reset", results[2].Lookup.Reason)

	assert.False(t, results[3].Lookup.Available)
	assert.Equal(t, "rate limited", results[3].Lookup.Reason)

	require.Len(t, searcher.Calls, 3, "items without a query make no call")
	for _, q := range searcher.Calls {
		if q.Keywords == "pyrex 401 bowl" {
			assert.Equal(t, 10.0, q.MinValue)
			assert.Equal(t, 30.0, q.MaxValue)
		}
	}
}

func TestEnrich_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return found(1, 5), nil
	}}

	items := make([]item.Item, 7)
	for i := range items {
		items[i] = item.Item{Name: "thing", SearchQuery: "thing"}
	}

	results, err := NewEnricher(searcher, EnricherOpts{Concurrency: 3}).Enrich(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, results, 7)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Len(t, searcher.Calls, 7)
}

func TestEnrich_Broadening(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		switch q.Keywords {
		case "Fiesta disc pitcher turquoise 1940s":
			return found(1, 80), nil
		case "Fiesta kitchenware":
			return found(2, 40), nil
		case "Fiesta disc pitcher":
			return found(6, 60), nil
		}
		return Unavailable("unexpected"), nil
	}}

	it := item.Item{
		Name:        "Fiesta pitcher",
		Brand:       "Fiesta",
		Category:    item.CategoryKitchenware,
		SearchQuery: "Fiesta disc pitcher turquoise 1940s",
	}

	results, err := NewEnricher(searcher, EnricherOpts{BroadeningThreshold: 5}).Enrich(context.Background(), []item.Item{it})
	require.NoError(t, err)

	l := results[0].Lookup
	assert.Equal(t, 6, l.Count)
	assert.Equal(t, "Fiesta disc pitcher", l.QueryUsed)
	assert.Len(t, searcher.Calls, 3)
}

func TestEnrich_BroadeningDisabled(t *testing.T) {
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		return found(1, 80), nil
	}}

	it := item.Item{Name: "x", Brand: "Fiesta", Category: item.CategoryKitchenware, SearchQuery: "Fiesta disc pitcher turquoise"}
	_, err := NewEnricher(searcher, EnricherOpts{}).Enrich(context.Background(), []item.Item{it})
	require.NoError(t, err)
	assert.Len(t, searcher.Calls, 1)
}

func TestEnrich_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		cancel()
		return found(1, 5), nil
	}}

	items := []item.Item{
		{Name: "a", SearchQuery: "a"},
		{Name: "b", SearchQuery: "b"},
		{Name: "c", SearchQuery: "c"},
	}
	results, err := NewEnricher(searcher, EnricherOpts{Concurrency: 1}).Enrich(ctx, items)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}

func TestCachedSearcher(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	lookup := found(3, 20)
	lookup.QueryUsed = "pyrex bowl"
	inner := &fakeSearcher{SearchFunc: func(ctx context.Context, q Query) (Lookup, error) {
		if q.Keywords == "down" {
			return Unavailable("outage"), nil
		}
		return lookup, nil
	}}
	cached := NewCachedSearcher(inner, store, time.Hour)

	first, err := cached.Search(context.Background(), Query{Keywords: "Pyrex  Bowl"})
	require.NoError(t, err)
	second, err := cached.Search(context.Background(), Query{Keywords: "pyrex bowl"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.Calls, 1, "normalized query hits the cache")

	_, err = cached.Search(context.Background(), Query{Keywords: "pyrex bowl", MinValue: 10, MaxValue: 20})
	require.NoError(t, err)
	assert.Len(t, inner.Calls, 2, "bounds are part of the key")

	for range 2 {
		l, err := cached.Search(context.Background(), Query{Keywords: "down"})
		require.NoError(t, err)
		assert.False(t, l.Available)
	}
	assert.Len(t, inner.Calls, 4, "unavailable lookups are not cached")
}
