package export

import (
	"strings"

	"github.com/raine/estate-pricer/internal/item"
)

// Row is the flat, per-item shape shared by the CSV and Parquet exports.
// Price fields are nil when the item has no marketplace data.
type Row struct {
	Name              string   `parquet:"name"`
	Category          string   `parquet:"category"`
	Brand             string   `parquet:"brand"`
	Model             string   `parquet:"model"`
	Era               string   `parquet:"era"`
	Condition         string   `parquet:"condition"`
	Confidence        string   `parquet:"confidence"`
	SearchQuery       string   `parquet:"search_query"`
	MedianPrice       *float64 `parquet:"median_price,optional"`
	LowPrice          *float64 `parquet:"low_price,optional"`
	HighPrice         *float64 `parquet:"high_price,optional"`
	AvgPrice          *float64 `parquet:"avg_price,optional"`
	NumComps          *int64   `parquet:"num_comps,optional"`
	PricingConfidence string   `parquet:"pricing_confidence"`
	NotableFeatures   string   `parquet:"notable_features"`
}

var csvHeader = []string{
	"name",
	"category",
	"brand",
	"model",
	"era",
	"condition",
	"confidence",
	"search_query",
	"median_price",
	"low_price",
	"high_price",
	"avg_price",
	"num_comps",
	"pricing_confidence",
	"notable_features",
}

// Rows flattens items.
func Rows(items []item.Item) []Row {
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{
			Name:            it.Name,
			Category:        string(it.Category),
			Brand:           it.Brand,
			Model:           it.Model,
			Era:             it.Era,
			Condition:       string(it.Condition),
			Confidence:      string(it.Confidence),
			SearchQuery:     it.SearchQuery,
			NotableFeatures: strings.Join(it.NotableFeatures, "; "),
		}
		if c := it.Comps; c != nil {
			count := int64(c.Count)
			rows[i].MedianPrice = &c.Median
			rows[i].LowPrice = &c.Low
			rows[i].HighPrice = &c.High
			rows[i].AvgPrice = &c.Mean
			rows[i].NumComps = &count
			rows[i].PricingConfidence = c.Confidence
		}
	}
	return rows
}
