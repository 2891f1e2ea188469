package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/item"
)

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatParquet  = "parquet"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTerminal, FormatJSON, FormatCSV, FormatParquet}

// Write renders the report in the given format. Filtering applies to the
// item list; the summary always reflects the whole report.
func Write(w io.Writer, format string, report *analysis.Report, f Filter) error {
	items := Apply(report.Items, f)
	switch format {
	case FormatTerminal, "":
		_, err := io.WriteString(w, RenderTerminal(report, items))
		return err
	case FormatJSON:
		filtered := *report
		filtered.Items = items
		return WriteJSON(w, &filtered)
	case FormatCSV:
		return WriteCSV(w, items)
	case FormatParquet:
		return WriteParquet(w, items)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteCSV writes one row per item with a header row. Price columns are
// empty for items without marketplace data.
func WriteCSV(w io.Writer, items []item.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range Rows(items) {
		record := []string{
			r.Name,
			r.Category,
			r.Brand,
			r.Model,
			r.Era,
			r.Condition,
			r.Confidence,
			r.SearchQuery,
			formatOptionalPrice(r.MedianPrice),
			formatOptionalPrice(r.LowPrice),
			formatOptionalPrice(r.HighPrice),
			formatOptionalPrice(r.AvgPrice),
			formatOptionalCount(r.NumComps),
			r.PricingConfidence,
			r.NotableFeatures,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes the items as a Parquet file with the Row schema.
func WriteParquet(w io.Writer, items []item.Item) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(Rows(items)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func formatOptionalPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatOptionalCount(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
