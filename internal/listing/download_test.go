package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegHeader is enough for content sniffing to report image/jpeg.
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.png":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			w.Write([]byte("png"))
		case "/sniffed":
			w.Header()["Content-Type"] = nil
			w.Write(jpegHeader)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		case "/big.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(jpegHeader)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	d := NewImageDownloader()

	img, err := d.Download(context.Background(), ts.URL+"/typed.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("png"), img.Data)

	img, err = d.Download(context.Background(), ts.URL+"/sniffed")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	_, err = d.Download(context.Background(), ts.URL+"/page.html")
	assert.ErrorContains(t, err, "invalid content type")

	_, err = d.Download(context.Background(), ts.URL+"/missing.jpg")
	assert.ErrorContains(t, err, "status 404")

	_, err = NewImageDownloader().WithMaxSize(16).Download(context.Background(), ts.URL+"/big.jpg")
	assert.ErrorContains(t, err, "image too large")

	_, err = NewImageDownloader().WithTimeout(50*time.Millisecond).Download(context.Background(), ts.URL+"/slow.jpg")
	assert.ErrorContains(t, err, "failed to download image")
}
