package ebay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL  = "https://svcs.ebay.com"
	DefaultGlobalID = "EBAY-US"
	DefaultPageSize = 8

	findingPath    = "/services/search/FindingService/v1"
	serviceVersion = "1.13.0"

	// Value hints are rough, so the price filter is widened around them.
	minPriceFactor = 0.3
	maxPriceFactor = 3.0

	recentSalesLimit = 5
)

// conditionIDs spans every condition class from new through for-parts.
var conditionIDs = []string{"1000", "1500", "1750", "2000", "2500", "3000", "4000", "5000", "6000", "7000"}

// Query is a sold-listings search.
type Query struct {
	Keywords   string
	CategoryID string
	// MinValue and MaxValue are the caller's estimated value bounds; zero
	// means no hint.
	MinValue float64
	MaxValue float64
}

// Searcher looks up comparable sales. Marketplace failures are reported in
// the returned Lookup; a non-nil error means the lookup itself was rejected.
type Searcher interface {
	Search(ctx context.Context, q Query) (Lookup, error)
}

// ClientOpts configures a Client.
type ClientOpts struct {
	BaseURL  string
	AppID    config.Credential
	GlobalID string
	PageSize int
	Timeout  time.Duration
	// OutlierStdDevs enables outlier removal when positive.
	OutlierStdDevs float64
}

// Client queries the eBay Finding API for completed, sold listings.
type Client struct {
	httpClient *resty.Client
	appID      config.Credential
	globalID   string
	pageSize   int
	timeout    time.Duration
	outliers   float64
}

var _ Searcher = (*Client)(nil)

// NewClient creates a Finding API client. A client with an unconfigured app
// id is valid; every search reports the marketplace as unavailable.
func NewClient(opts ClientOpts) *Client {
	c := Client{
		appID:    opts.AppID,
		globalID: DefaultGlobalID,
		pageSize: DefaultPageSize,
		timeout:  opts.Timeout,
		outliers: opts.OutlierStdDevs,
	}
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	if opts.GlobalID != "" {
		c.globalID = opts.GlobalID
	}
	if opts.PageSize > 0 {
		c.pageSize = opts.PageSize
	}
	c.httpClient = resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

// Configured reports whether the client has an app id.
func (c *Client) Configured() bool {
	return c.appID.Configured()
}

// Search runs a sold-listings lookup. It never returns an error: every
// failure becomes an unavailable Lookup with a reason.
func (c *Client) Search(ctx context.Context, q Query) (Lookup, error) {
	if !c.appID.Configured() {
		return Unavailable("eBay app id not configured"), nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result := &findCompletedItemsEnvelope{}
	res, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetQueryParamsFromValues(c.queryParams(q)).
		SetResult(result).
		Get(findingPath))
	if err != nil {
		log.Warn().Err(err).Str("query", q.Keywords).Msg("ebay lookup failed")
		return Unavailable(err.Error()), nil
	}

	if len(result.Response) == 0 {
		return Unavailable(fmt.Sprintf("unexpected ebay response: %s", truncate(res.String(), 200))), nil
	}
	resp := result.Response[0]
	if ack := first(resp.Ack); ack != "Success" && ack != "Warning" {
		return Unavailable(resp.errorMessage()), nil
	}

	lookup := summarize(resp.sales(), resp.totalEntries(), c.outliers)
	lookup.QueryUsed = q.Keywords

	log.Debug().
		Str("query", q.Keywords).
		Int("count", lookup.Count).
		Int("totalResults", lookup.TotalResults).
		Float64("median", lookup.Median).
		Msg("ebay lookup")

	return lookup, nil
}

func (c *Client) queryParams(q Query) map[string][]string {
	params := map[string][]string{
		"OPERATION-NAME":                 {"findCompletedItems"},
		"SERVICE-VERSION":                {serviceVersion},
		"SECURITY-APPNAME":               {c.appID.Value},
		"GLOBAL-ID":                      {c.globalID},
		"RESPONSE-DATA-FORMAT":           {"JSON"},
		"REST-PAYLOAD":                   {""},
		"keywords":                       {q.Keywords},
		"sortOrder":                      {"EndTimeSoonest"},
		"paginationInput.entriesPerPage": {strconv.Itoa(c.pageSize)},
		"itemFilter(0).name":             {"SoldItemsOnly"},
		"itemFilter(0).value":            {"true"},
		"itemFilter(1).name":             {"Condition"},
	}
	for i, id := range conditionIDs {
		params[fmt.Sprintf("itemFilter(1).value(%d)", i)] = []string{id}
	}

	filter := 2
	if q.MinValue > 0 {
		addPriceFilter(params, filter, "MinPrice", q.MinValue*minPriceFactor)
		filter++
	}
	if q.MaxValue > 0 {
		addPriceFilter(params, filter, "MaxPrice", q.MaxValue*maxPriceFactor)
	}
	if q.CategoryID != "" {
		params["categoryId"] = []string{q.CategoryID}
	}

	return params
}

func addPriceFilter(params map[string][]string, index int, name string, value float64) {
	prefix := fmt.Sprintf("itemFilter(%d)", index)
	params[prefix+".name"] = []string{name}
	params[prefix+".value"] = []string{strconv.FormatFloat(value, 'f', 2, 64)}
	params[prefix+".paramName"] = []string{"Currency"}
	params[prefix+".paramValue"] = []string{"USD"}
}

// handleError turns failing responses (>399 status code) into errors.
// Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("ebay request failed: %s (status: %d)", res.Request.Method, res.StatusCode())
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
