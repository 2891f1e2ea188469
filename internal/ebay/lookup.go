package ebay

import (
	"math"
	"slices"

	"github.com/raine/estate-pricer/internal/item"
)

// Lookup is the outcome of one comparable-sales search. When Available is
// false, Reason says why and the statistics are zero.
type Lookup struct {
	Available    bool        `json:"available"`
	Reason       string      `json:"reason,omitempty"`
	Count        int         `json:"count"`
	TotalResults int         `json:"totalResults"`
	Median       float64     `json:"median"`
	Mean         float64     `json:"mean"`
	Low          float64     `json:"low"`
	High         float64     `json:"high"`
	QueryUsed    string      `json:"queryUsed,omitempty"`
	RecentSales  []item.Sale `json:"recentSales"`
}

// Unavailable returns a Lookup that carries only a reason.
func Unavailable(reason string) Lookup {
	return Lookup{Reason: reason, RecentSales: []item.Sale{}}
}

// Comps converts an available lookup with at least one priced sale into the
// summary attached to items. Returns nil otherwise.
func (l Lookup) Comps() *item.Comps {
	if !l.Available || l.Count == 0 {
		return nil
	}
	return &item.Comps{
		Count:        l.Count,
		TotalResults: l.TotalResults,
		Median:       l.Median,
		Mean:         l.Mean,
		Low:          l.Low,
		High:         l.High,
		Confidence:   item.PricingConfidence(l.Count),
		QueryUsed:    l.QueryUsed,
		RecentSales:  l.RecentSales,
	}
}

// FromComps rebuilds an available Lookup from a cached summary.
func FromComps(c item.Comps) Lookup {
	sales := c.RecentSales
	if sales == nil {
		sales = []item.Sale{}
	}
	return Lookup{
		Available:    true,
		Count:        c.Count,
		TotalResults: c.TotalResults,
		Median:       c.Median,
		Mean:         c.Mean,
		Low:          c.Low,
		High:         c.High,
		QueryUsed:    c.QueryUsed,
		RecentSales:  sales,
	}
}

// summarize computes price statistics over the priced sales. Median and mean
// are rounded to whole currency units; low and high are the raw extremes.
// A positive outlierStdDevs first drops prices that far from the mean, and
// Count reflects the prices that remain. RecentSales is never filtered.
func summarize(sales []item.Sale, totalResults int, outlierStdDevs float64) Lookup {
	lookup := Lookup{
		Available:    true,
		Count:        len(sales),
		TotalResults: totalResults,
		RecentSales:  []item.Sale{},
	}
	if len(sales) == 0 {
		return lookup
	}

	prices := make([]float64, len(sales))
	for i, s := range sales {
		prices[i] = s.Price
	}
	prices = removeOutliers(prices, outlierStdDevs)
	slices.Sort(prices)

	var sum float64
	for _, p := range prices {
		sum += p
	}
	lookup.Count = len(prices)

	lookup.Median = math.Round(median(prices))
	lookup.Mean = math.Round(sum / float64(len(prices)))
	lookup.Low = prices[0]
	lookup.High = prices[len(prices)-1]
	lookup.RecentSales = slices.Clone(sales[:min(len(sales), recentSalesLimit)])

	return lookup
}

// removeOutliers drops prices more than stdDevs sample standard deviations
// from the mean. It needs at least 3 prices and a non-zero spread, and
// returns the input unchanged otherwise or when nothing would remain.
func removeOutliers(prices []float64, stdDevs float64) []float64 {
	if stdDevs <= 0 || len(prices) < 3 {
		return prices
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))

	var sq float64
	for _, p := range prices {
		sq += (p - mean) * (p - mean)
	}
	stdev := math.Sqrt(sq / float64(len(prices)-1))
	if stdev == 0 {
		return prices
	}

	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.Abs(p-mean) <= stdDevs*stdev {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return prices
	}
	return kept
}

// median expects sorted, non-empty input.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
