package analysis

import (
	"context"
	"sync"

	"github.com/raine/estate-pricer/internal/listing"
	"github.com/raine/estate-pricer/internal/llm"
)

// MockSource is a test double for listing.Source.
// If PhotosFunc is not set, Photos returns no photos.
type MockSource struct {
	PhotosFunc func(ctx context.Context, listingID string) ([]listing.Photo, error)

	mu    sync.Mutex
	Calls []string
}

var _ listing.Source = (*MockSource)(nil)

func (m *MockSource) Photos(ctx context.Context, listingID string) ([]listing.Photo, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, listingID)
	fn := m.PhotosFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, listingID)
	}
	return nil, nil
}

// MockFetcher is a test double for PhotoFetcher.
// If DownloadFunc is not set, Download returns a small JPEG payload.
type MockFetcher struct {
	DownloadFunc func(ctx context.Context, url string) (*listing.Image, error)

	mu    sync.Mutex
	Calls []string
}

var _ PhotoFetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Download(ctx context.Context, url string) (*listing.Image, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, url)
	fn := m.DownloadFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, url)
	}
	return &listing.Image{Data: []byte(url), MIMEType: "image/jpeg"}, nil
}

// MockVision is a test double for llm.VisionModel.
// If DescribeFunc is not set, Describe returns an empty JSON array.
type MockVision struct {
	DescribeFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	mu    sync.Mutex
	Calls []llm.Request
}

var _ llm.VisionModel = (*MockVision)(nil)

func (m *MockVision) Describe(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.DescribeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &llm.Response{Model: "mock", Text: "[]"}, nil
}

// CallCount returns the number of Describe calls so far.
func (m *MockVision) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
