package analysis

import (
	"slices"
	"time"

	"github.com/raine/estate-pricer/internal/item"
	"github.com/raine/estate-pricer/internal/llm"
)

// Request is a single analysis invocation.
type Request struct {
	ListingID string `json:"listingId"`
	Title     string `json:"title"`
	Address   string `json:"address"`
	// MaxPhotos caps how many photos are analyzed; zero uses the default.
	MaxPhotos int `json:"maxPhotos"`
}

// Summary holds report-level statistics.
type Summary struct {
	PhotosAnalyzed int     `json:"photosAnalyzed"`
	TotalPhotos    int     `json:"totalPhotos"`
	ItemCount      int     `json:"itemCount"`
	EbayAvailable  bool    `json:"ebayAvailable"`
	TotalLow       float64 `json:"totalEstimatedLow"`
	TotalHigh      float64 `json:"totalEstimatedHigh"`

	// TotalEbayMedian is nil when no item has marketplace data.
	TotalEbayMedian *float64 `json:"totalEbayMedian,omitempty"`

	UnrecognizedCategories int     `json:"unrecognizedCategories"`
	InputTokens            int64   `json:"inputTokens"`
	OutputTokens           int64   `json:"outputTokens"`
	CostUSD                float64 `json:"costUSD"`
}

// Report is the result of analyzing one listing. It is not modified after
// Analyze returns it.
type Report struct {
	ListingID   string      `json:"listingId"`
	Title       string      `json:"title,omitempty"`
	Items       []item.Item `json:"items"`
	Summary     Summary     `json:"summary"`
	Message     string      `json:"message,omitempty"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Value is the figure items are ranked by: the marketplace median when
// known, otherwise the low end of the model's estimate.
func Value(it item.Item) float64 {
	if it.Comps != nil {
		return it.Comps.Median
	}
	low, _, _ := item.ParseValueHint(it.EstimatedValueHint)
	return low
}

// SortByValue orders items by Value, highest first. Ties keep their order.
func SortByValue(items []item.Item) {
	slices.SortStableFunc(items, func(a, b item.Item) int {
		va, vb := Value(a), Value(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})
}

func summarize(items []item.Item, photosAnalyzed, totalPhotos, unrecognized int, usage llm.Usage) Summary {
	s := Summary{
		PhotosAnalyzed:         photosAnalyzed,
		TotalPhotos:            totalPhotos,
		ItemCount:              len(items),
		UnrecognizedCategories: unrecognized,
		InputTokens:            usage.InputTokens,
		OutputTokens:           usage.OutputTokens,
		CostUSD:                usage.CostUSD,
	}

	var medianTotal float64
	for _, it := range items {
		if it.Comps != nil {
			s.EbayAvailable = true
			s.TotalLow += it.Comps.Low
			s.TotalHigh += it.Comps.High
			medianTotal += it.Comps.Median
			continue
		}
		if low, high, ok := item.ParseValueHint(it.EstimatedValueHint); ok {
			s.TotalLow += low
			s.TotalHigh += high
		}
	}
	if s.EbayAvailable {
		s.TotalEbayMedian = &medianTotal
	}
	return s
}
