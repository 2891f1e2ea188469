package listing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/raine/estate-pricer/internal/config"
)

const DefaultAPIBaseURL = "https://www.estatesales.net"

type picturesResponse struct {
	Pictures []struct {
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnailUrl"`
		Description  string `json:"description"`
	} `json:"pictures"`
}

type ClientOpts struct {
	BaseURL string
	APIKey  config.Credential
}

// Client reads sale photos from the listing JSON API.
type Client struct {
	httpClient *resty.Client
	apiKey     config.Credential
}

var _ Source = (*Client)(nil)

func NewClient(opts ClientOpts) *Client {
	baseURL := DefaultAPIBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	c := Client{apiKey: opts.APIKey}
	c.httpClient = resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if c.apiKey.Configured() {
		request.SetHeader("X-API-Key", c.apiKey.Value)
	}
	if result != nil {
		request.SetResult(result)
	}

	return request
}

// Photos returns the sale's pictures. Entries without any URL are skipped.
func (c *Client) Photos(ctx context.Context, listingID string) ([]Photo, error) {
	var result picturesResponse
	res, err := c.req(ctx, &result).
		SetPathParam("listingId", listingID).
		Get("/api/sale-details/{listingId}/pictures")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing photos: %w", err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, listingID)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch listing photos: status %d", res.StatusCode())
	}

	photos := make([]Photo, 0, len(result.Pictures))
	for _, p := range result.Pictures {
		if p.URL == "" && p.ThumbnailURL == "" {
			continue
		}
		photos = append(photos, Photo{
			FullURL:      p.URL,
			ThumbnailURL: p.ThumbnailURL,
			Caption:      p.Description,
		})
	}
	return photos, nil
}
