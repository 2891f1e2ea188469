package ebay

import (
	"context"
	"strings"

	"github.com/raine/estate-pricer/internal/batch"
	"github.com/raine/estate-pricer/internal/item"
	"github.com/rs/zerolog/log"
)

const DefaultConcurrency = 3

// EnricherOpts configures an Enricher.
type EnricherOpts struct {
	Concurrency int
	// BroadeningThreshold enables retrying with shorter queries when the
	// primary query yields fewer priced sales. Zero disables it.
	BroadeningThreshold int
}

// Enricher looks up comparable sales for many items with bounded
// concurrency.
type Enricher struct {
	searcher    Searcher
	concurrency int
	broadening  int
}

// Result pairs an item's name with its lookup. Results are index-aligned
// with the items passed to Enrich.
type Result struct {
	Name   string
	Lookup Lookup
}

func NewEnricher(searcher Searcher, opts EnricherOpts) *Enricher {
	e := &Enricher{
		searcher:    searcher,
		concurrency: DefaultConcurrency,
		broadening:  opts.BroadeningThreshold,
	}
	if opts.Concurrency > 0 {
		e.concurrency = opts.Concurrency
	}
	return e
}

// Enrich runs one lookup per item, at most Concurrency at a time. Every item
// gets a result: items without a search query and lookups that fail outright
// are recorded as unavailable. An error is returned only when ctx ends
// between batches; the results gathered so far are returned with it.
func (e *Enricher) Enrich(ctx context.Context, items []item.Item) ([]Result, error) {
	outcomes, err := batch.Settle(ctx, items, e.concurrency, func(ctx context.Context, _ int, it item.Item) (Lookup, error) {
		return e.lookup(ctx, it)
	})

	results := make([]Result, len(outcomes))
	for i, o := range outcomes {
		results[i] = Result{Name: items[i].Name, Lookup: o.Value}
		if o.Err != nil {
			log.Warn().Err(o.Err).Str("item", items[i].Name).Msg("price lookup rejected")
			results[i].Lookup = Unavailable(o.Err.Error())
		}
	}
	return results, err
}

func (e *Enricher) lookup(ctx context.Context, it item.Item) (Lookup, error) {
	if strings.TrimSpace(it.SearchQuery) == "" {
		return Unavailable("No search query"), nil
	}

	q := Query{Keywords: it.SearchQuery}
	if low, high, ok := item.ParseValueHint(it.EstimatedValueHint); ok {
		q.MinValue, q.MaxValue = low, high
	}

	primary, err := e.searcher.Search(ctx, q)
	if err != nil || e.broadening <= 0 || !primary.Available || primary.Count >= e.broadening {
		return primary, err
	}

	best := primary
	for _, keywords := range broaderQueries(it) {
		q.Keywords = keywords
		lookup, err := e.searcher.Search(ctx, q)
		if err != nil || !lookup.Available {
			continue
		}
		lookup.QueryUsed = keywords
		log.Debug().
			Str("item", it.Name).
			Str("query", keywords).
			Int("count", lookup.Count).
			Msg("broadened price lookup")
		if lookup.Count >= e.broadening {
			return lookup, nil
		}
		if lookup.Count > best.Count {
			best = lookup
		}
	}
	return best, nil
}

// broaderQueries returns progressively less specific queries for an item:
// brand plus category, then the first three words of the original query.
func broaderQueries(it item.Item) []string {
	var queries []string
	seen := map[string]bool{strings.ToLower(it.SearchQuery): true}
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			return
		}
		seen[strings.ToLower(q)] = true
		queries = append(queries, q)
	}

	if it.Brand != "" && it.Category != item.CategoryOther {
		add(it.Brand + " " + strings.ReplaceAll(string(it.Category), "_", " "))
	}
	if words := strings.Fields(it.SearchQuery); len(words) > 3 {
		add(strings.Join(words[:3], " "))
	}
	return queries
}
