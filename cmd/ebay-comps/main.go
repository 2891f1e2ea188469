package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/estate-pricer/internal/config"
	"github.com/raine/estate-pricer/internal/ebay"
)

func main() {
	query := flag.String("q", "", "Search query")
	minValue := flag.Float64("min", 0, "Low end of the expected price")
	maxValue := flag.Float64("max", 0, "High end of the expected price")
	category := flag.String("category", "", "eBay category id")
	pageSize := flag.Int("rows", ebay.DefaultPageSize, "Number of results")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	if *query == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -q <query> [-min N] [-max N]\n", os.Args[0])
		os.Exit(1)
	}

	config.LoadEnvFile()
	client := ebay.NewClient(ebay.ClientOpts{
		AppID:    config.NewCredential(os.Getenv(config.EnvEbayAppID)),
		PageSize: *pageSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lookup, err := client.Search(ctx, ebay.Query{
		Keywords:   *query,
		CategoryID: *category,
		MinValue:   *minValue,
		MaxValue:   *maxValue,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *rawJSON {
		jsonBytes, _ := json.MarshalIndent(lookup, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	if !lookup.Available {
		fmt.Printf("Unavailable: %s\n", lookup.Reason)
		return
	}

	fmt.Printf("Found %d sold (total: %d)\n", lookup.Count, lookup.TotalResults)
	fmt.Printf("Median $%.0f, mean $%.0f, range $%.0f-$%.0f (%s confidence)\n\n",
		lookup.Median, lookup.Mean, lookup.Low, lookup.High, pricingConfidence(lookup))

	for i, sale := range lookup.RecentSales {
		fmt.Printf("%d. %s - $%.2f\n", i+1, sale.Title, sale.Price)
		if sale.SoldDate != "" {
			fmt.Printf("   %s %s\n", sale.SoldDate, sale.ListingType)
		}
	}
}

func pricingConfidence(l ebay.Lookup) string {
	if c := l.Comps(); c != nil {
		return c.Confidence
	}
	return "none"
}
