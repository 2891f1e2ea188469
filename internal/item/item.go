package item

import (
	"regexp"
	"strconv"
	"strings"
)

// Category is the fixed enumeration of item categories.
type Category string

const (
	CategoryFurniture     Category = "furniture"
	CategoryElectronics   Category = "electronics"
	CategoryAppliances    Category = "appliances"
	CategoryKitchenware   Category = "kitchenware"
	CategoryArt           Category = "art"
	CategoryCollectibles  Category = "collectibles"
	CategoryTools         Category = "tools"
	CategoryClothing      Category = "clothing"
	CategoryJewelry       Category = "jewelry"
	CategoryBooks         Category = "books"
	CategoryToys          Category = "toys"
	CategorySportingGoods Category = "sporting_goods"
	CategoryOther         Category = "other"
)

// Categories lists every valid category in prompt order.
var Categories = []Category{
	CategoryFurniture,
	CategoryElectronics,
	CategoryAppliances,
	CategoryKitchenware,
	CategoryArt,
	CategoryCollectibles,
	CategoryTools,
	CategoryClothing,
	CategoryJewelry,
	CategoryBooks,
	CategoryToys,
	CategorySportingGoods,
	CategoryOther,
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Confidence is the vision model's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidence levels: high=3, medium=2, low=1.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Condition is the visible-wear estimate.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionUnknown   Condition = "unknown"
)

// Item is one object identified by the vision model in one photo.
type Item struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Category            Category   `json:"category"`
	Brand               string     `json:"brand,omitempty"`
	Model               string     `json:"model,omitempty"`
	Era                 string     `json:"era,omitempty"`
	Condition           Condition  `json:"condition_estimate"`
	NotableFeatures     []string   `json:"notable_features"`
	SearchQuery         string     `json:"search_query"`
	Confidence          Confidence `json:"confidence"`
	ConfidenceReasoning string     `json:"confidence_reasoning,omitempty"`
	EstimatedValueHint  string     `json:"estimated_value_hint,omitempty"`
	PhotoIndex          int        `json:"photo_index"`
	PhotoURL            string     `json:"photo_url"`

	// Comps is set by the price enricher; nil when the marketplace was
	// unavailable or returned no results.
	Comps *Comps `json:"ebay,omitempty"`
}

// Comps summarizes comparable completed marketplace sales for an item.
type Comps struct {
	Count        int     `json:"count"`
	TotalResults int     `json:"totalResults"`
	Median       float64 `json:"median"`
	Mean         float64 `json:"mean"`
	Low          float64 `json:"low"`
	High         float64 `json:"high"`
	Confidence   string  `json:"confidence"`
	QueryUsed    string  `json:"queryUsed,omitempty"`
	RecentSales  []Sale  `json:"recentSales"`
}

// Sale is one completed marketplace listing.
type Sale struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	SoldDate    string  `json:"soldDate,omitempty"`
	Condition   string  `json:"condition,omitempty"`
	ListingType string  `json:"listingType,omitempty"`
	Image       string  `json:"image,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// PricingConfidence grades a comp count.
func PricingConfidence(count int) string {
	switch {
	case count >= 10:
		return "high"
	case count >= 3:
		return "medium"
	case count >= 1:
		return "low"
	}
	return "none"
}

// AddFeatures merges features into the item's feature set, keeping the
// existing order and appending unseen values.
func (it *Item) AddFeatures(features []string) {
	seen := make(map[string]bool, len(it.NotableFeatures)+len(features))
	merged := make([]string, 0, len(it.NotableFeatures)+len(features))
	for _, f := range it.NotableFeatures {
		if !seen[f] {
			seen[f] = true
			merged = append(merged, f)
		}
	}
	for _, f := range features {
		if !seen[f] {
			seen[f] = true
			merged = append(merged, f)
		}
	}
	it.NotableFeatures = merged
}

var dollarAmount = regexp.MustCompile(`\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ParseValueHint extracts the first two "$<number>" amounts from an
// estimate such as "$50 - $100". A single amount is used as both bounds, so
// "$50-100" yields 50/50. ok is false when the hint has no dollar amount.
func ParseValueHint(hint string) (low, high float64, ok bool) {
	matches := dollarAmount.FindAllStringSubmatch(hint, 2)
	if len(matches) == 0 {
		return 0, 0, false
	}
	low, err := parseAmount(matches[0][1])
	if err != nil {
		return 0, 0, false
	}
	high = low
	if len(matches) > 1 {
		if v, err := parseAmount(matches[1][1]); err == nil {
			high = v
		}
	}
	return low, high, true
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
