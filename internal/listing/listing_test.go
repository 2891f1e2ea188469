package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mendableai/firecrawl-go"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPhotos(t *testing.T) {
	b, err := os.ReadFile("testdata/sale_pictures.json")
	require.NoError(t, err)

	var req *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL, APIKey: config.NewCredential("key-1")})
	photos, err := client.Photos(context.Background(), "4412873")
	require.NoError(t, err)

	assert.Equal(t, "/api/sale-details/4412873/pictures", req.URL.Path)
	assert.Equal(t, "key-1", req.Header.Get("X-API-Key"))
	require.Len(t, photos, 2)
	assert.Equal(t, Photo{
		FullURL:      "https://picturescdn.estatesales.net/4412873/photos/91001.jpg",
		ThumbnailURL: "https://picturescdn.estatesales.net/4412873/thumbs/91001_thumb.jpg",
		Caption:      "Kitchen: Pyrex and Corning Ware",
	}, photos[0])
}

func TestClientPhotos_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/missing/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})

	_, err := client.Photos(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Photos(context.Background(), "123")
	assert.ErrorContains(t, err, "status 502")
}

func TestPhotoURL(t *testing.T) {
	p := Photo{FullURL: "full", ThumbnailURL: "thumb"}
	assert.Equal(t, "full", p.URL(false))
	assert.Equal(t, "thumb", p.URL(true))
	assert.Equal(t, "thumb", Photo{ThumbnailURL: "thumb"}.URL(false))
	assert.Equal(t, "full", Photo{FullURL: "full"}.URL(true))
}

type fakeScraper struct {
	doc *firecrawl.FirecrawlDocument
	err error
	url string
}

func (f *fakeScraper) ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
	f.url = url
	return f.doc, f.err
}

func TestFirecrawlSource(t *testing.T) {
	scraper := &fakeScraper{doc: &firecrawl.FirecrawlDocument{
		Markdown: strings.Join([]string{
			"# Mid-Century Estate Sale",
			"![EstateSales.NET logo](https://www.estatesales.net/images/logo.png)",
			"![Dining set](https://picturescdn.estatesales.net/1/thumbs/a_thumb.jpg?w=200)",
			"![](https://picturescdn.estatesales.net/1/photos/b.jpg)",
		}, "\n"),
		HTML: `<div><img class="gallery-image" src="https://picturescdn.estatesales.net/1/photos/b.jpg">` +
			`<img data-src="https://picturescdn.estatesales.net/1/photos/c.jpg" alt=""></div>`,
	}}

	source := newFirecrawlSource(scraper, "")
	photos, err := source.Photos(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, "https://www.estatesales.net/sale/1", scraper.url)
	require.Len(t, photos, 3)
	assert.Equal(t, Photo{
		FullURL:      "https://picturescdn.estatesales.net/1/photos/a.jpg",
		ThumbnailURL: "https://picturescdn.estatesales.net/1/thumbs/a_thumb.jpg?w=200",
		Caption:      "Dining set",
	}, photos[0])
	assert.Equal(t, "https://picturescdn.estatesales.net/1/photos/b.jpg", photos[1].FullURL)
	assert.Equal(t, "https://picturescdn.estatesales.net/1/photos/c.jpg", photos[2].FullURL)
}

func TestFirecrawlSource_ScrapeError(t *testing.T) {
	source := newFirecrawlSource(&fakeScraper{err: errors.New("402 payment required")}, "https://example.com/s/%s")
	_, err := source.Photos(context.Background(), "9")
	assert.ErrorContains(t, err, "failed to scrape listing page")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(SourceOpts{Kind: "api"})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, src)

	_, err = NewSource(SourceOpts{Kind: "firecrawl"})
	assert.ErrorContains(t, err, config.EnvFirecrawlAPIKey)

	_, err = NewSource(SourceOpts{Kind: "carrier-pigeon"})
	assert.Error(t, err)
}
