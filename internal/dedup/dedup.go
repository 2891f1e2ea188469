package dedup

import (
	"sort"

	"github.com/raine/estate-pricer/internal/item"
)

const (
	DefaultNameThreshold  = 0.75
	DefaultQueryThreshold = 0.70
)

// Options holds the similarity thresholds at or above which two items in
// the same category are considered the same object.
type Options struct {
	NameThreshold  float64
	QueryThreshold float64
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		NameThreshold:  DefaultNameThreshold,
		QueryThreshold: DefaultQueryThreshold,
	}
}

// Deduplicate merges items that describe the same object across photos.
//
// Items are visited in descending confidence order (input order among
// equals). A candidate is a duplicate of a kept item when both share a
// category and either their names or their search queries are similar
// enough; the kept item absorbs the candidate's notable features. Output is
// in confidence order. The input slice is not modified.
func Deduplicate(items []item.Item, opts Options) []item.Item {
	if len(items) == 0 {
		return []item.Item{}
	}

	sorted := make([]item.Item, len(items))
	for i, it := range items {
		it.NotableFeatures = append([]string(nil), it.NotableFeatures...)
		sorted[i] = it
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence.Rank() > sorted[j].Confidence.Rank()
	})

	kept := make([]item.Item, 0, len(sorted))
	for _, candidate := range sorted {
		duplicate := false
		for k := range kept {
			if isDuplicate(&kept[k], &candidate, opts) {
				kept[k].AddFeatures(candidate.NotableFeatures)
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}

	return kept
}

func isDuplicate(existing, candidate *item.Item, opts Options) bool {
	if existing.Category != candidate.Category {
		return false
	}
	if Similarity(existing.Name, candidate.Name) >= opts.NameThreshold {
		return true
	}
	return Similarity(existing.SearchQuery, candidate.SearchQuery) >= opts.QueryThreshold
}
