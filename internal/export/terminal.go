package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/item"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	confidenceColors = map[item.Confidence]lipgloss.Color{
		item.ConfidenceHigh:   lipgloss.Color("42"),
		item.ConfidenceMedium: lipgloss.Color("220"),
		item.ConfidenceLow:    lipgloss.Color("196"),
	}
)

const confidenceColumn = 0

// Stars renders a confidence level as three stars.
func Stars(c item.Confidence) string {
	switch c {
	case item.ConfidenceHigh:
		return "★★★"
	case item.ConfidenceMedium:
		return "★★☆"
	case item.ConfidenceLow:
		return "★☆☆"
	}
	return "☆☆☆"
}

// RenderTerminal renders the report header, a table of items and the
// report totals.
func RenderTerminal(report *analysis.Report, items []item.Item) string {
	var b strings.Builder

	title := report.Title
	if title == "" {
		title = "Listing " + report.ListingID
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if report.Message != "" {
		b.WriteString(dimStyle.Render(report.Message))
		b.WriteString("\n")
		return b.String()
	}

	if len(items) == 0 {
		b.WriteString(dimStyle.Render("No items match the current filters"))
		b.WriteString("\n\n")
	} else {
		b.WriteString(itemTable(items).Render())
		b.WriteString("\n\n")
	}

	b.WriteString(summaryLines(report.Summary))
	return b.String()
}

func itemTable(items []item.Item) *table.Table {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			Stars(it.Confidence),
			displayName(it),
			titleCase(string(it.Category)),
			medianCell(it),
			rangeCell(it),
			compsCell(it),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Conf", "Item", "Category", "Median", "Range", "Comps").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == confidenceColumn && row >= 0 && row < len(items) {
				if color, ok := confidenceColors[items[row].Confidence]; ok {
					return cellStyle.Foreground(color)
				}
				return cellStyle.Foreground(lipgloss.Color("245"))
			}
			return cellStyle
		})
}

func summaryLines(s analysis.Summary) string {
	var b strings.Builder

	if s.TotalEbayMedian != nil {
		b.WriteString(totalStyle.Render(fmt.Sprintf(
			"Total Estimated Value: %s (median) | %s (range)",
			formatPrice(*s.TotalEbayMedian), formatRange(s.TotalLow, s.TotalHigh),
		)))
	} else {
		b.WriteString(totalStyle.Render(fmt.Sprintf(
			"Total Estimated Value: %s (model estimate)",
			formatRange(s.TotalLow, s.TotalHigh),
		)))
	}
	b.WriteString("\n")

	stats := fmt.Sprintf(
		"Items Identified: %d | Photos Analyzed: %d/%d | API Cost: $%.4f",
		s.ItemCount, s.PhotosAnalyzed, s.TotalPhotos, s.CostUSD,
	)
	if s.UnrecognizedCategories > 0 {
		stats += fmt.Sprintf(" | Unrecognized Categories: %d", s.UnrecognizedCategories)
	}
	if !s.EbayAvailable {
		stats += " | eBay: unavailable"
	}
	b.WriteString(dimStyle.Render(stats))
	b.WriteString("\n")
	return b.String()
}

func displayName(it item.Item) string {
	if it.Brand != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(it.Brand)) {
		return it.Brand + " " + it.Name
	}
	return it.Name
}

func medianCell(it item.Item) string {
	if it.Comps == nil {
		if it.EstimatedValueHint != "" {
			return dimStyle.Render("~" + it.EstimatedValueHint)
		}
		return dimStyle.Render("no data")
	}
	return formatPrice(it.Comps.Median)
}

func rangeCell(it item.Item) string {
	if it.Comps == nil {
		return ""
	}
	return formatRange(it.Comps.Low, it.Comps.High)
}

func compsCell(it item.Item) string {
	if it.Comps == nil {
		return dimStyle.Render("no data")
	}
	return fmt.Sprintf("%d sold", it.Comps.Count)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatPrice renders v as dollars with thousands separators, e.g. $1,234.00.
func formatPrice(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// formatRange renders a whole-dollar range, e.g. $40-$210.
func formatRange(low, high float64) string {
	return fmt.Sprintf("$%.0f-$%.0f", low, high)
}
