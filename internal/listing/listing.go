// Package listing resolves a listing identifier to its photo collection and
// downloads the photos.
package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/raine/estate-pricer/internal/config"
)

// ErrNotFound is returned when the listing does not exist at the source.
var ErrNotFound = errors.New("listing not found")

// Photo is one listing photo. Caption is optional.
type Photo struct {
	FullURL      string `json:"fullUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Caption      string `json:"caption,omitempty"`
}

// URL returns the full-size URL, or the thumbnail when preferThumbnail is set
// or no full-size URL is known.
func (p Photo) URL(preferThumbnail bool) string {
	if (preferThumbnail && p.ThumbnailURL != "") || p.FullURL == "" {
		return p.ThumbnailURL
	}
	return p.FullURL
}

// Source resolves a listing's photos in display order.
type Source interface {
	Photos(ctx context.Context, listingID string) ([]Photo, error)
}

// SourceOpts selects and configures a Source.
type SourceOpts struct {
	Kind            string // "api" or "firecrawl"
	BaseURL         string
	PageURLTemplate string
	APIKey          config.Credential
	FirecrawlKey    config.Credential
}

// NewSource builds the configured listing source.
func NewSource(opts SourceOpts) (Source, error) {
	switch opts.Kind {
	case "", "api":
		return NewClient(ClientOpts{BaseURL: opts.BaseURL, APIKey: opts.APIKey}), nil
	case "firecrawl":
		if !opts.FirecrawlKey.Configured() {
			return nil, fmt.Errorf("%s is not set", config.EnvFirecrawlAPIKey)
		}
		return NewFirecrawlSource(opts.FirecrawlKey.Value, "", opts.PageURLTemplate)
	}
	return nil, fmt.Errorf("unknown listing source %q", opts.Kind)
}
