package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/export"
	"github.com/raine/estate-pricer/internal/item"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	title         string
	address       string
	maxPhotos     int
	thumbnails    bool
	format        string
	output        string
	minValue      float64
	minConfidence string
	categories    string
	sortBy        string
}

func newAnalyzeCmd(global *globalFlags) *cobra.Command {
	flags := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze <listing-id>",
		Short: "Identify and price the items in a listing's photos",
		Example: `  # Analyze a listing and print a table
  estate-pricer analyze 4821337 --title "Mid-century home"

  # Only well-identified items worth $50 or more, as CSV
  estate-pricer analyze 4821337 --min-value 50 --min-confidence medium -f csv -o items.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			if !slices.Contains(export.Formats, flags.format) {
				return fmt.Errorf("unknown output format %q (want one of %s)", flags.format, strings.Join(export.Formats, ", "))
			}

			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if err := ensureVisionCredential(cmd.OutOrStdout(), &cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("thumbnails") {
				cfg.Analyzer.UseThumbnails = flags.thumbnails
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.analyzer.Analyze(cmd.Context(), analysis.Request{
				ListingID: args[0],
				Title:     flags.title,
				Address:   flags.address,
				MaxPhotos: flags.maxPhotos,
			})
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				return export.Write(w, flags.format, report, filter)
			}
			if flags.output != "" {
				return writeOutput(flags.output, write)
			}
			if flags.format == export.FormatParquet {
				return fmt.Errorf("parquet output requires --output")
			}
			return write(cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.title, "title", "", "listing title passed to the vision model")
	f.StringVar(&flags.address, "address", "", "listing location passed to the vision model")
	f.IntVar(&flags.maxPhotos, "max-photos", 0, "maximum photos to analyze (default from config)")
	f.BoolVar(&flags.thumbnails, "thumbnails", false, "analyze thumbnails instead of full-size photos")
	f.StringVarP(&flags.format, "format", "f", export.FormatTerminal, "output format: "+strings.Join(export.Formats, ", "))
	f.StringVarP(&flags.output, "output", "o", "", "write output to a file")
	f.Float64Var(&flags.minValue, "min-value", 0, "hide items valued below this")
	f.StringVar(&flags.minConfidence, "min-confidence", "", "hide items below this confidence: low, medium, high")
	f.StringVar(&flags.categories, "categories", "", "comma-separated categories to show")
	f.StringVar(&flags.sortBy, "sort", export.SortValue, "sort by value, confidence or category")

	return cmd
}

// writeOutput writes to a newly created file at path. A failed close is
// reported, since buffered data may not have reached the disk.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	return write(f)
}

func (f *analyzeFlags) filter() (export.Filter, error) {
	filter := export.Filter{MinValue: f.minValue, SortBy: f.sortBy}

	switch f.sortBy {
	case export.SortValue, export.SortConfidence, export.SortCategory:
	default:
		return filter, fmt.Errorf("unknown sort %q", f.sortBy)
	}

	if f.minConfidence != "" {
		c := item.Confidence(strings.ToLower(f.minConfidence))
		if c.Rank() == 0 {
			return filter, fmt.Errorf("unknown confidence %q", f.minConfidence)
		}
		filter.MinConfidence = c
	}

	if f.categories != "" {
		valid, unknown := export.ParseCategories(f.categories)
		if len(unknown) > 0 {
			return filter, fmt.Errorf("unknown categories: %s", strings.Join(unknown, ", "))
		}
		filter.Categories = valid
	}
	return filter, nil
}
