package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/raine/estate-pricer/internal/ebay"
	"github.com/raine/estate-pricer/internal/storage"
	"github.com/spf13/cobra"
)

func newCompsCmd(global *globalFlags) *cobra.Command {
	var (
		q      ebay.Query
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "comps <keywords...>",
		Short:   "Look up recent eBay sold prices for a search phrase",
		Example: `  estate-pricer comps pyrex butterprint bowl --min 10 --max 60`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			store, err := storage.NewSQLiteStore(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to open cache database: %w", err)
			}
			defer store.Close()

			q.Keywords = strings.Join(args, " ")
			lookup, err := newSearcher(cfg, store).Search(cmd.Context(), q)
			if err != nil {
				return err
			}

			if asJSON {
				return writeIndentedJSON(cmd.OutOrStdout(), lookup)
			}
			printLookup(cmd.OutOrStdout(), lookup)
			return nil
		},
	}

	cmd.Flags().Float64Var(&q.MinValue, "min", 0, "low end of the expected price")
	cmd.Flags().Float64Var(&q.MaxValue, "max", 0, "high end of the expected price")
	cmd.Flags().StringVar(&q.CategoryID, "category", "", "eBay category id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the lookup as JSON")

	return cmd
}

func printLookup(w io.Writer, l ebay.Lookup) {
	if !l.Available {
		fmt.Fprintf(w, "eBay unavailable: %s\n", l.Reason)
		return
	}
	if l.Count == 0 {
		fmt.Fprintf(w, "No sold listings found (%d total results)\n", l.TotalResults)
		return
	}
	fmt.Fprintf(w, "%d sold of %d results: median $%.0f, mean $%.0f, range $%.0f-$%.0f\n",
		l.Count, l.TotalResults, l.Median, l.Mean, l.Low, l.High)
	for _, s := range l.RecentSales {
		fmt.Fprintf(w, "  $%8.2f  %s  %s\n", s.Price, s.SoldDate, s.Title)
	}
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
