package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/ebay"
	"github.com/raine/estate-pricer/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []analysis.Request
	fn    func(req analysis.Request) (*analysis.Report, error)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req)
	}
	return &analysis.Report{
		ListingID: req.ListingID,
		Items:     []item.Item{{Name: "Oak Rocking Chair", Category: item.CategoryFurniture}},
		Summary:   analysis.Summary{ItemCount: 1},
	}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSearcher struct {
	mu  sync.Mutex
	got ebay.Query
}

func (f *fakeSearcher) query() ebay.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

func (f *fakeSearcher) Search(_ context.Context, q ebay.Query) (ebay.Lookup, error) {
	f.mu.Lock()
	f.got = q
	f.mu.Unlock()
	return ebay.Lookup{Available: true, Count: 2, Median: 40, Low: 30, High: 50, RecentSales: []item.Sale{}}, nil
}

func newTestServer(t *testing.T, a Analyzer, s ebay.Searcher) *httptest.Server {
	t.Helper()
	h, err := NewRouter(a, s, Opts{ReportCacheSize: 2, AllowedOrigins: []string{"https://example.com"}})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func postAnalyze(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestAnalyzeCachesReports(t *testing.T) {
	a := &fakeAnalyzer{}
	srv := newTestServer(t, a, nil)

	resp := postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":" 42 ","title":"Maple St"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[analysis.Report](t, resp)
	assert.Equal(t, "42", report.ListingID)
	require.Len(t, report.Items, 1)

	// Served from cache.
	resp = postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, a.callCount())

	resp = postAnalyze(t, srv.URL+"/api/analyze?refresh=true", `{"listingId":"42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, a.callCount())

	get, err := http.Get(srv.URL + "/api/analyze/42")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	missing, err := http.Get(srv.URL + "/api/analyze/99")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAnalyzeCacheKeyIncludesMaxPhotos(t *testing.T) {
	a := &fakeAnalyzer{fn: func(req analysis.Request) (*analysis.Report, error) {
		return &analysis.Report{
			ListingID: req.ListingID,
			Title:     fmt.Sprintf("max %d", req.MaxPhotos),
			Items:     []item.Item{},
		}, nil
	}}
	srv := newTestServer(t, a, nil)

	resp := postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"42","maxPhotos":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "max 2", decode[analysis.Report](t, resp).Title)

	resp = postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"42","maxPhotos":10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "max 10", decode[analysis.Report](t, resp).Title)
	assert.Equal(t, 2, a.callCount())

	// Omitting maxPhotos uses the default of 10 and hits the cache.
	resp = postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "max 10", decode[analysis.Report](t, resp).Title)
	assert.Equal(t, 2, a.callCount())

	resp = postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"42","maxPhotos":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, a.callCount())

	// The lookup by listing returns the most recently analyzed report.
	get, err := http.Get(srv.URL + "/api/analyze/42")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	assert.Equal(t, "max 10", decode[analysis.Report](t, get).Title)
}

func TestAnalyzeErrorStatus(t *testing.T) {
	tests := []struct {
		kind   analysis.Kind
		status int
	}{
		{analysis.KindConfig, http.StatusBadRequest},
		{analysis.KindUpstream, http.StatusBadGateway},
		{analysis.KindTimeout, http.StatusGatewayTimeout},
		{analysis.KindCancelled, statusClientClosedRequest},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a := &fakeAnalyzer{fn: func(analysis.Request) (*analysis.Report, error) {
				return nil, &analysis.Error{Kind: tt.kind, Message: "boom"}
			}}
			srv := newTestServer(t, a, nil)

			resp := postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"7"}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[analysis.Error](t, resp)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, "boom", body.Message)

			// Failures are not cached.
			get, err := http.Get(srv.URL + "/api/analyze/7")
			require.NoError(t, err)
			defer get.Body.Close()
			assert.Equal(t, http.StatusNotFound, get.StatusCode)
		})
	}
}

func TestAnalyzeBadRequest(t *testing.T) {
	a := &fakeAnalyzer{}
	srv := newTestServer(t, a, nil)

	resp := postAnalyze(t, srv.URL+"/api/analyze", `{"title":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postAnalyze(t, srv.URL+"/api/analyze", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, a.callCount())
}

func TestAnalyzeWithPipeline(t *testing.T) {
	vision := &analysis.MockVision{}
	source := &analysis.MockSource{}
	an := analysis.New(analysis.Deps{
		Source:  source,
		Fetcher: &analysis.MockFetcher{},
		Vision:  vision,
	}, analysis.Options{})
	srv := newTestServer(t, an, nil)

	// No vision credential configured.
	resp := postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[analysis.Error](t, resp)
	assert.Equal(t, analysis.KindConfig, body.Kind)
	assert.Contains(t, body.Message, "GEMINI_API_KEY")
	assert.Equal(t, 0, vision.CallCount())
}

func TestComps(t *testing.T) {
	s := &fakeSearcher{}
	srv := newTestServer(t, &fakeAnalyzer{}, s)

	resp, err := http.Get(srv.URL + "/api/comps?q=pyrex+bowl&min=10&max=50")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lookup := decode[ebay.Lookup](t, resp)
	assert.True(t, lookup.Available)
	assert.Equal(t, 40.0, lookup.Median)
	assert.Equal(t, ebay.Query{Keywords: "pyrex bowl", MinValue: 10, MaxValue: 50}, s.query())

	bad, err := http.Get(srv.URL + "/api/comps?q=x&min=abc")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	missing, err := http.Get(srv.URL + "/api/comps")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestCompsWithoutSearcher(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, nil)

	resp, err := http.Get(srv.URL + "/api/comps?q=pyrex")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lookup := decode[ebay.Lookup](t, resp)
	assert.False(t, lookup.Available)
	assert.Equal(t, "eBay app id not configured", lookup.Reason)
}

func TestReportCacheIsBounded(t *testing.T) {
	a := &fakeAnalyzer{}
	srv := newTestServer(t, a, nil)

	for _, id := range []string{"1", "2", "3"} {
		resp := postAnalyze(t, srv.URL+"/api/analyze", `{"listingId":"`+id+`"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	evicted, err := http.Get(srv.URL + "/api/analyze/1")
	require.NoError(t, err)
	defer evicted.Body.Close()
	assert.Equal(t, http.StatusNotFound, evicted.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{}, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
