// Package export renders analysis reports as JSON, CSV, Parquet and terminal
// tables.
package export

import (
	"slices"
	"strings"

	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/item"
)

// Sort orders.
const (
	SortValue      = "value"
	SortConfidence = "confidence"
	SortCategory   = "category"
)

// Filter narrows and orders a report's items for display.
type Filter struct {
	// MinValue drops items whose value (comp median, else estimate low) is
	// below it.
	MinValue      float64
	MinConfidence item.Confidence
	Categories    []item.Category
	SortBy        string
}

// Apply returns the items that pass f, sorted as requested. The input is not
// modified.
func Apply(items []item.Item, f Filter) []item.Item {
	minRank := f.MinConfidence.Rank()
	out := make([]item.Item, 0, len(items))
	for _, it := range items {
		if f.MinValue > 0 && analysis.Value(it) < f.MinValue {
			continue
		}
		if minRank > 0 && it.Confidence.Rank() < minRank {
			continue
		}
		if len(f.Categories) > 0 && !slices.Contains(f.Categories, it.Category) {
			continue
		}
		out = append(out, it)
	}

	switch strings.ToLower(f.SortBy) {
	case SortConfidence:
		slices.SortStableFunc(out, func(a, b item.Item) int {
			return b.Confidence.Rank() - a.Confidence.Rank()
		})
	case SortCategory:
		slices.SortStableFunc(out, func(a, b item.Item) int {
			return strings.Compare(string(a.Category), string(b.Category))
		})
	case "", SortValue:
		analysis.SortByValue(out)
	}
	return out
}

// ParseCategories splits a comma-separated category list. Unknown names are
// returned separately.
func ParseCategories(s string) (valid []item.Category, unknown []string) {
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		c := item.Category(part)
		if !c.Valid() {
			unknown = append(unknown, part)
			continue
		}
		valid = append(valid, c)
	}
	return valid, unknown
}
