package cli

import (
	"context"
	"fmt"

	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/raine/estate-pricer/internal/ebay"
	"github.com/raine/estate-pricer/internal/listing"
	"github.com/raine/estate-pricer/internal/llm"
	"github.com/raine/estate-pricer/internal/storage"
	"github.com/rs/zerolog/log"
)

// app holds the components wired from one configuration.
type app struct {
	cfg      config.Config
	store    *storage.SQLiteStore
	searcher ebay.Searcher
	analyzer *analysis.Analyzer
}

// newApp wires storage, the vision backend, the listing source and the price
// client. A missing vision credential is not an error here; Analyze reports
// it as a configuration error.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	log.Debug().Str("path", cfg.Storage.Path).Msg("cache database opened")

	if cfg.Pricer.CacheTTL > 0 {
		if n, err := store.PruneCompsCache(cfg.Pricer.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to prune comps cache")
		} else if n > 0 {
			log.Debug().Int64("pruned", n).Msg("pruned expired comps")
		}
	}

	a := &app{cfg: cfg, store: store, searcher: newSearcher(cfg, store)}

	var vision llm.VisionModel
	if cfg.VisionCredential().Configured() {
		vision, err = llm.FromConfig(ctx, cfg, store)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize vision model: %w", err)
		}
		log.Debug().Str("provider", cfg.Analyzer.Provider).Str("model", cfg.Analyzer.Model).Msg("vision model initialized")
	}

	source, err := listing.NewSource(listing.SourceOpts{
		Kind:            cfg.Listing.Source,
		BaseURL:         cfg.Listing.BaseURL,
		PageURLTemplate: cfg.Listing.PageURLTemplate,
		APIKey:          cfg.ListingKey,
		FirecrawlKey:    cfg.FirecrawlKey,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize listing source: %w", err)
	}

	deps := analysis.Deps{
		Source: source,
		Fetcher: listing.NewImageDownloader().
			WithTimeout(cfg.Analyzer.DownloadTimeout).
			WithMaxSize(cfg.Analyzer.MaxImageBytes),
		Vision: vision,
	}
	if cfg.EbayAppID.Configured() {
		deps.Enricher = ebay.NewEnricher(a.searcher, ebay.EnricherOpts{
			Concurrency:         cfg.Pricer.Concurrency,
			BroadeningThreshold: cfg.Pricer.BroadeningThreshold,
		})
	}
	a.analyzer = analysis.New(deps, analysis.OptionsFromConfig(cfg))

	return a, nil
}

func newSearcher(cfg config.Config, store storage.Store) ebay.Searcher {
	client := ebay.NewClient(ebay.ClientOpts{
		BaseURL:        cfg.Pricer.BaseURL,
		AppID:          cfg.EbayAppID,
		GlobalID:       cfg.Pricer.GlobalID,
		PageSize:       cfg.Pricer.PageSize,
		Timeout:        cfg.Pricer.CallTimeout,
		OutlierStdDevs: cfg.Pricer.OutlierStdDevs,
	})
	if store == nil || cfg.Pricer.CacheTTL <= 0 {
		return client
	}
	return ebay.NewCachedSearcher(client, store, cfg.Pricer.CacheTTL)
}

func (a *app) Close() error {
	return a.store.Close()
}
