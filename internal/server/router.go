// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/raine/estate-pricer/internal/analysis"
	"github.com/raine/estate-pricer/internal/ebay"
	"github.com/rs/zerolog/log"
)

const DefaultReportCacheSize = 128

// statusClientClosedRequest is reported when the caller went away before the
// analysis finished.
const statusClientClosedRequest = 499

// Analyzer produces a report for one listing.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

// Opts configures a Router. MaxPhotos is the analyzer's photo limit used
// when a request does not set one.
type Opts struct {
	ReportCacheSize int
	AllowedOrigins  []string
	MaxPhotos       int
}

// Router serves analysis and comp lookups. Reports are kept in a bounded
// cache keyed by listing id and effective photo limit; latest remembers the
// most recent key per listing.
type Router struct {
	analyzer  Analyzer
	searcher  ebay.Searcher
	maxPhotos int
	reports   *lru.Cache[string, *analysis.Report]
	latest    *lru.Cache[string, string]
}

// NewRouter builds the HTTP handler. searcher may be nil, in which case the
// comps endpoint reports the marketplace as unavailable.
func NewRouter(analyzer Analyzer, searcher ebay.Searcher, opts Opts) (http.Handler, error) {
	size := opts.ReportCacheSize
	if size <= 0 {
		size = DefaultReportCacheSize
	}
	reports, err := lru.New[string, *analysis.Report](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	latest, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	maxPhotos := opts.MaxPhotos
	if maxPhotos <= 0 {
		maxPhotos = analysis.DefaultMaxPhotos
	}
	r := &Router{
		analyzer:  analyzer,
		searcher:  searcher,
		maxPhotos: maxPhotos,
		reports:   reports,
		latest:    latest,
	}

	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/analyze/{listingId}", r.wrap(r.handleCachedReport))
		rt.Get("/comps", r.wrap(r.handleComps))
	})

	return mux, nil
}

// httpError is a handler failure with an explicit status.
type httpError struct {
	status int
	body   any
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d", e.status)
}

func badRequest(format string, a ...any) *httpError {
	return &httpError{
		status: http.StatusBadRequest,
		body:   &analysis.Error{Kind: analysis.KindConfig, Message: fmt.Sprintf(format, a...)},
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var herr *httpError
		var aerr *analysis.Error
		switch {
		case errors.As(err, &herr):
		case errors.As(err, &aerr):
			herr = &httpError{status: statusForKind(aerr.Kind), body: aerr}
		default:
			herr = &httpError{
				status: http.StatusInternalServerError,
				body:   map[string]string{"message": err.Error()},
			}
		}

		log.Warn().
			Err(err).
			Str("requestId", w.Header().Get(requestIDHeader)).
			Str("path", req.URL.Path).
			Int("status", herr.status).
			Msg("request failed")
		writeJSON(w, herr.status, herr.body)
	}
}

func statusForKind(kind analysis.Kind) int {
	switch kind {
	case analysis.KindConfig:
		return http.StatusBadRequest
	case analysis.KindTimeout:
		return http.StatusGatewayTimeout
	case analysis.KindCancelled:
		return statusClientClosedRequest
	}
	return http.StatusBadGateway
}

// POST /api/analyze?refresh=true
// Body: {"listingId": "...", "title": "...", "address": "...", "maxPhotos": 10}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body analysis.Request
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	body.ListingID = strings.TrimSpace(body.ListingID)
	if body.ListingID == "" {
		return badRequest("listingId is required")
	}

	maxPhotos := r.maxPhotos
	if body.MaxPhotos > 0 {
		maxPhotos = body.MaxPhotos
	}
	key := reportKey(body.ListingID, maxPhotos)

	refresh, _ := strconv.ParseBool(req.URL.Query().Get("refresh"))
	if !refresh {
		if report, ok := r.reports.Get(key); ok {
			log.Debug().Str("listingId", body.ListingID).Int("maxPhotos", maxPhotos).Msg("report cache hit")
			writeJSON(w, http.StatusOK, report)
			return nil
		}
	}

	report, err := r.analyzer.Analyze(req.Context(), body)
	if err != nil {
		return err
	}
	r.reports.Add(key, report)
	r.latest.Add(body.ListingID, key)

	writeJSON(w, http.StatusOK, report)
	return nil
}

// GET /api/analyze/{listingId}
func (r *Router) handleCachedReport(w http.ResponseWriter, req *http.Request) error {
	listingID := chi.URLParam(req, "listingId")
	var report *analysis.Report
	key, ok := r.latest.Get(listingID)
	if ok {
		report, ok = r.reports.Get(key)
	}
	if !ok {
		return &httpError{
			status: http.StatusNotFound,
			body:   map[string]string{"message": "no report for listing " + listingID},
		}
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

func reportKey(listingID string, maxPhotos int) string {
	return fmt.Sprintf("%s|%d", listingID, maxPhotos)
}

// GET /api/comps?q=&min=&max=&category=
func (r *Router) handleComps(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	q := ebay.Query{
		Keywords:   strings.TrimSpace(query.Get("q")),
		CategoryID: query.Get("category"),
	}
	if q.Keywords == "" {
		return badRequest("q is required")
	}

	var err error
	if q.MinValue, err = parseAmount(query.Get("min")); err != nil {
		return badRequest("invalid min: %v", err)
	}
	if q.MaxValue, err = parseAmount(query.Get("max")); err != nil {
		return badRequest("invalid max: %v", err)
	}

	if r.searcher == nil {
		writeJSON(w, http.StatusOK, ebay.Unavailable("eBay app id not configured"))
		return nil
	}

	lookup, err := r.searcher.Search(req.Context(), q)
	if err != nil {
		lookup = ebay.Unavailable(err.Error())
	}
	writeJSON(w, http.StatusOK, lookup)
	return nil
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an id and logs its completion.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		log.Info().
			Str("requestId", id).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
