package listing

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mendableai/firecrawl-go"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFirecrawlURL    = "https://api.firecrawl.dev"
	DefaultPageURLTemplate = "https://www.estatesales.net/sale/%s"
)

var (
	markdownImageRe = regexp.MustCompile(`!\[([^\]]*)\]\((https?://[^)\s]+)`)
	htmlImageRe     = regexp.MustCompile(`<img[^>]+(?:data-src|src)="(https?://[^"]+)"`)
)

// pageScraper is the part of the Firecrawl client the source uses.
type pageScraper interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// FirecrawlSource scrapes the public sale page and collects its gallery
// images. It is used when no listing API key is available.
type FirecrawlSource struct {
	scraper     pageScraper
	urlTemplate string
}

var _ Source = (*FirecrawlSource)(nil)

func NewFirecrawlSource(apiKey, apiURL, pageURLTemplate string) (*FirecrawlSource, error) {
	if apiURL == "" {
		apiURL = DefaultFirecrawlURL
	}
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firecrawl: %w", err)
	}
	return newFirecrawlSource(app, pageURLTemplate), nil
}

func newFirecrawlSource(scraper pageScraper, pageURLTemplate string) *FirecrawlSource {
	if pageURLTemplate == "" {
		pageURLTemplate = DefaultPageURLTemplate
	}
	return &FirecrawlSource{scraper: scraper, urlTemplate: pageURLTemplate}
}

// Photos scrapes the listing page. The Firecrawl client is not
// context-aware, so cancellation is only observed before the request.
func (s *FirecrawlSource) Photos(ctx context.Context, listingID string) ([]Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf(s.urlTemplate, url.PathEscape(listingID))
	doc, err := s.scraper.ScrapeURL(pageURL, &firecrawl.ScrapeParams{
		Formats: []string{"markdown", "html"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scrape listing page: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, listingID)
	}

	photos := extractPhotos(doc.Markdown, doc.HTML)
	log.Debug().Str("listingId", listingID).Int("photos", len(photos)).Msg("scraped listing page")
	return photos, nil
}

// extractPhotos collects gallery images from markdown and HTML in page
// order, skipping icons and duplicates.
func extractPhotos(markdown, html string) []Photo {
	var photos []Photo
	seen := map[string]bool{}
	add := func(src, caption string) {
		if isDecoration(src) {
			return
		}
		full := fullSizeURL(src)
		if seen[full] {
			return
		}
		seen[full] = true
		photos = append(photos, Photo{FullURL: full, ThumbnailURL: src, Caption: strings.TrimSpace(caption)})
	}

	for _, m := range markdownImageRe.FindAllStringSubmatch(markdown, -1) {
		add(m[2], m[1])
	}
	for _, m := range htmlImageRe.FindAllStringSubmatch(html, -1) {
		add(m[1], "")
	}
	return photos
}

func isDecoration(src string) bool {
	lower := strings.ToLower(src)
	for _, s := range []string{"logo", "icon", "sprite", "placeholder", ".svg", ".gif"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// fullSizeURL upgrades a gallery thumbnail URL to the full-size image.
func fullSizeURL(src string) string {
	full := strings.ReplaceAll(src, "/thumbs/", "/photos/")
	full = strings.ReplaceAll(full, "_thumb.", ".")
	if i := strings.IndexByte(full, '?'); i >= 0 {
		full = full[:i]
	}
	return full
}
