// Package analysis runs the photo-to-valuation pipeline for one listing.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raine/estate-pricer/internal/batch"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/raine/estate-pricer/internal/dedup"
	"github.com/raine/estate-pricer/internal/ebay"
	"github.com/raine/estate-pricer/internal/item"
	"github.com/raine/estate-pricer/internal/listing"
	"github.com/raine/estate-pricer/internal/llm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxPhotos   = 10
	DefaultConcurrency = 3

	noPhotosMessage = "No photos found for this listing"
)

// PhotoFetcher downloads photo bytes.
type PhotoFetcher interface {
	Download(ctx context.Context, url string) (*listing.Image, error)
}

// Enricher attaches marketplace lookups to items.
type Enricher interface {
	Enrich(ctx context.Context, items []item.Item) ([]ebay.Result, error)
}

// Deps are the collaborators of an Analyzer. Enricher may be nil when no
// marketplace is configured.
type Deps struct {
	Source   listing.Source
	Fetcher  PhotoFetcher
	Vision   llm.VisionModel
	Enricher Enricher
}

// Options configures an Analyzer. The credentials decide which stages run.
type Options struct {
	VisionCredential      config.Credential
	VisionEnvVar          string
	MarketplaceCredential config.Credential

	MaxPhotos     int
	Concurrency   int
	CallTimeout   time.Duration
	Timeout       time.Duration
	UseThumbnails bool
	Dedup         dedup.Options
	// MaxImageDimension bounds the longest photo edge sent to the vision
	// model. Zero disables resizing.
	MaxImageDimension int
}

// OptionsFromConfig derives Options from the application config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		VisionCredential:      cfg.VisionCredential(),
		VisionEnvVar:          cfg.VisionEnvVar(),
		MarketplaceCredential: cfg.EbayAppID,
		MaxPhotos:             cfg.Analyzer.MaxPhotos,
		Concurrency:           cfg.Analyzer.Concurrency,
		CallTimeout:           cfg.Analyzer.CallTimeout,
		Timeout:               cfg.Analyzer.AnalysisTimeout,
		UseThumbnails:         cfg.Analyzer.UseThumbnails,
		MaxImageDimension:     cfg.Analyzer.MaxImageDimension,
		Dedup: dedup.Options{
			NameThreshold:  cfg.Analyzer.NameThreshold,
			QueryThreshold: cfg.Analyzer.QueryThreshold,
		},
	}
}

// Analyzer orchestrates photo analysis, deduplication and price enrichment.
type Analyzer struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Analyzer {
	if opts.MaxPhotos <= 0 {
		opts.MaxPhotos = DefaultMaxPhotos
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Dedup == (dedup.Options{}) {
		opts.Dedup = dedup.DefaultOptions()
	}
	if opts.VisionEnvVar == "" {
		opts.VisionEnvVar = config.EnvGeminiAPIKey
	}
	return &Analyzer{deps: deps, opts: opts}
}

// photoResult is what one photo contributes.
type photoResult struct {
	items   []item.Item
	unknown int
	usage   llm.Usage
}

// Analyze produces a report for one listing. Configuration problems, a failed
// photo listing, timeouts and cancellation are returned as *Error; every other
// failure only reduces what the report contains.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	listingID := strings.TrimSpace(req.ListingID)
	logger := log.With().Str("listingId", listingID).Logger()

	if listingID == "" {
		return nil, a.failed(logger, configError("listing id is required"))
	}
	if !a.opts.VisionCredential.Configured() || a.deps.Vision == nil {
		return nil, a.failed(logger, configError("vision model is not configured: %s is not set", a.opts.VisionEnvVar))
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	logger.Debug().Str("stage", "fetching-photos").Msg("analysis stage")
	photos, err := a.deps.Source.Photos(ctx, listingID)
	if err != nil {
		return nil, a.failed(logger, contextError(err, "failed to fetch listing photos"))
	}

	report := &Report{
		ListingID:   listingID,
		Title:       req.Title,
		Items:       []item.Item{},
		GeneratedAt: time.Now().UTC(),
	}
	if len(photos) == 0 {
		report.Message = noPhotosMessage
		logger.Debug().Str("stage", "done").Msg("analysis stage")
		return report, nil
	}

	totalPhotos := len(photos)
	maxPhotos := a.opts.MaxPhotos
	if req.MaxPhotos > 0 {
		maxPhotos = req.MaxPhotos
	}
	photos = photos[:min(len(photos), maxPhotos)]

	logger.Debug().Str("stage", "analyzing").Int("photos", len(photos)).Int("totalPhotos", totalPhotos).Msg("analysis stage")
	outcomes, err := batch.Settle(ctx, photos, a.opts.Concurrency, func(ctx context.Context, i int, photo listing.Photo) (photoResult, error) {
		return a.analyzePhoto(ctx, req, photo, i, len(photos))
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, a.failed(logger, contextError(err, "photo analysis stopped"))
	}

	var (
		items        []item.Item
		usage        llm.Usage
		analyzed     int
		unrecognized int
	)
	for i, o := range outcomes {
		usage.Add(o.Value.usage)
		if o.Err != nil {
			logger.Warn().Err(o.Err).Int("photoIndex", i).Msg("photo analysis failed")
			continue
		}
		analyzed++
		items = append(items, o.Value.items...)
		unrecognized += o.Value.unknown
	}

	logger.Debug().Str("stage", "deduplicating").Int("items", len(items)).Msg("analysis stage")
	items = dedup.Deduplicate(items, a.opts.Dedup)

	if a.opts.MarketplaceCredential.Configured() && a.deps.Enricher != nil && len(items) > 0 {
		logger.Debug().Str("stage", "enriching").Int("items", len(items)).Msg("analysis stage")
		results, err := a.deps.Enricher.Enrich(ctx, items)
		if err != nil {
			return nil, a.failed(logger, contextError(err, "price enrichment stopped"))
		}
		for i, r := range results {
			items[i].Comps = r.Lookup.Comps()
			if !r.Lookup.Available {
				logger.Debug().Str("item", r.Name).Str("reason", r.Lookup.Reason).Msg("no marketplace data")
			}
		}
	}

	logger.Debug().Str("stage", "summarizing").Msg("analysis stage")
	SortByValue(items)
	if items == nil {
		items = []item.Item{}
	}
	report.Items = items
	report.Summary = summarize(items, analyzed, totalPhotos, unrecognized, usage)

	logger.Info().
		Int("photosAnalyzed", analyzed).
		Int("items", len(items)).
		Bool("ebayAvailable", report.Summary.EbayAvailable).
		Float64("costUSD", usage.CostUSD).
		Msg("analysis complete")
	logger.Debug().Str("stage", "done").Msg("analysis stage")

	return report, nil
}

func (a *Analyzer) analyzePhoto(ctx context.Context, req Request, photo listing.Photo, index, total int) (photoResult, error) {
	if a.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.CallTimeout)
		defer cancel()
	}

	url := photo.URL(a.opts.UseThumbnails)
	img, err := a.deps.Fetcher.Download(ctx, url)
	if err != nil {
		return photoResult{}, fmt.Errorf("failed to fetch photo: %w", err)
	}
	if resized, err := listing.Resize(img, a.opts.MaxImageDimension); err != nil {
		log.Warn().Err(err).Int("photoIndex", index).Msg("sending photo without resizing")
	} else {
		img = resized
	}

	resp, err := a.deps.Vision.Describe(ctx, llm.Request{
		System: llm.SystemPrompt,
		Prompt: llm.UserPrompt(llm.PhotoContext{
			Title:        req.Title,
			Address:      req.Address,
			PhotoCaption: photo.Caption,
			Index:        index,
			Total:        total,
		}),
		Image:    img.Data,
		MIMEType: img.MIMEType,
	})
	if err != nil {
		return photoResult{}, fmt.Errorf("vision call failed: %w", err)
	}

	raws, err := llm.ParseItems(resp.Text)
	if err != nil {
		return photoResult{usage: resp.Usage}, err
	}

	result := photoResult{usage: resp.Usage}
	for _, raw := range raws {
		it, v, ok := item.FromRaw(raw)
		if !ok {
			log.Debug().Int("photoIndex", index).Msg("dropping item without a name")
			continue
		}
		if v.UnknownCategory != "" {
			result.unknown++
			log.Warn().
				Str("item", it.Name).
				Str("category", v.UnknownCategory).
				Msg("unrecognized category coerced to other")
		}
		it.PhotoIndex = index
		it.PhotoURL = url
		result.items = append(result.items, it)
	}
	return result, nil
}

func (a *Analyzer) failed(logger zerolog.Logger, err *Error) *Error {
	logger.Debug().Str("stage", "failed").Str("kind", string(err.Kind)).Msg("analysis stage")
	return err
}
