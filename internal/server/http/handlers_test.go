package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockSearcher implements Searcher for HTTP handler tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, cfg domain.SearchConfig) (*domain.SearchResult, error)
	lastCfg  domain.SearchConfig
	calls    int
}

func (m *mockSearcher) SearchAllSources(ctx context.Context, cfg domain.SearchConfig) (*domain.SearchResult, error) {
	m.calls++
	m.lastCfg = cfg
	if m.searchFn != nil {
		return m.searchFn(ctx, cfg)
	}
	return &domain.SearchResult{SearchID: uuid.New(), Query: cfg.Query}, nil
}

// stubProvider is a provider that only answers introspection calls.
type stubProvider struct {
	pt      domain.ProviderType
	enabled bool
}

func (p stubProvider) Search(context.Context, papersources.Query) ([]*domain.UnifiedSource, error) {
	return nil, nil
}
func (p stubProvider) RequestParams(papersources.Query) url.Values { return url.Values{} }
func (p stubProvider) Type() domain.ProviderType                 { return p.pt }
func (p stubProvider) Name() string                              { return "Stub " + string(p.pt) }
func (p stubProvider) IsEnabled() bool                           { return p.enabled }

func newTestRegistry(enabled bool) *papersources.Registry {
	return papersources.NewRegistry(
		stubProvider{pt: domain.ProviderTypeWebSearch, enabled: false},
		stubProvider{pt: domain.ProviderTypePubMed, enabled: enabled},
		stubProvider{pt: domain.ProviderTypeCrossref, enabled: enabled},
	)
}

func newTestHTTPServer(searcher Searcher, providers ProviderLister) *Server {
	return NewServer(Config{Address: ":0"}, searcher, providers, nil, zerolog.Nop())
}

func serveHTTP(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func postSearch(t *testing.T, srv *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", &buf)
	req.Header.Set("Content-Type", "application/json")
	return serveHTTP(srv, req)
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_Success(t *testing.T) {
	searchID := uuid.New()
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, cfg domain.SearchConfig) (*domain.SearchResult, error) {
			return &domain.SearchResult{
				SearchID: searchID,
				Query:    cfg.Query,
				Sources: []*domain.UnifiedSource{{
					ID:              "pubmed-1",
					ProviderType:    domain.ProviderTypePubMed,
					Title:           "Anti-VEGF therapy",
					PublicationDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
					PMID:            "1",
					QualityScore:    90,
				}},
				TotalFound:        1,
				SourceBreakdown:   map[domain.ProviderType]int{domain.ProviderTypePubMed: 1, domain.ProviderTypeCrossref: 0},
				ProviderErrors:    map[domain.ProviderType]string{domain.ProviderTypeCrossref: "provider crossref: provider timeout"},
				SearchStrategies:  []string{"pubmed: 1 records", "crossref: failed (provider timeout)"},
				DuplicatesRemoved: 0,
				DurationMS:        42,
			}, nil
		},
	}
	srv := newTestHTTPServer(searcher, newTestRegistry(true))

	rr := postSearch(t, srv, map[string]any{"query": "macular degeneration"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	decodeJSON(t, rr, &resp)

	if resp.SearchID != searchID.String() {
		t.Errorf("expected search_id %s, got %s", searchID, resp.SearchID)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(resp.Sources))
	}
	if resp.Sources[0].PublicationDate != "2024-03-09" {
		t.Errorf("expected publication_date 2024-03-09, got %q", resp.Sources[0].PublicationDate)
	}
	if resp.Sources[0].Authors == nil || resp.Sources[0].Keywords == nil {
		t.Error("expected empty arrays instead of null")
	}
	if resp.SourceBreakdown["crossref"] != 0 || resp.SourceBreakdown["pubmed"] != 1 {
		t.Errorf("unexpected breakdown: %v", resp.SourceBreakdown)
	}
	if resp.ProviderErrors["crossref"] == "" {
		t.Error("expected crossref provider error")
	}
	if resp.DurationMS != 42 {
		t.Errorf("expected duration_ms 42, got %d", resp.DurationMS)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}

func TestSearch_DefaultsOverlay(t *testing.T) {
	searcher := &mockSearcher{}
	srv := newTestHTTPServer(searcher, newTestRegistry(true))

	rr := postSearch(t, srv, map[string]any{
		"query":              "glaucoma",
		"max_total_results":  5,
		"only_open_access":   true,
		"include_abstracts":  false,
		"prioritize_sources": []string{"crossref", "pubmed"},
		"sort_by":            "date",
		"min_quality_score":  60,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	cfg := searcher.lastCfg
	if cfg.Query != "glaucoma" {
		t.Errorf("expected query glaucoma, got %q", cfg.Query)
	}
	if cfg.MaxTotalResults != 5 {
		t.Errorf("expected max_total_results 5, got %d", cfg.MaxTotalResults)
	}
	if cfg.MaxResultsPerSource != domain.DefaultMaxResultsPerSource {
		t.Errorf("expected default max_results_per_source, got %d", cfg.MaxResultsPerSource)
	}
	if !cfg.OnlyOpenAccess || cfg.IncludeAbstracts {
		t.Errorf("boolean overrides not applied: %+v", cfg)
	}
	if !cfg.EnableDeduplication {
		t.Error("expected default deduplication to stay enabled")
	}
	if cfg.SortBy != domain.SortByDate {
		t.Errorf("expected sort_by date, got %s", cfg.SortBy)
	}
	if cfg.MinQualityScore != 60 {
		t.Errorf("expected min_quality_score 60, got %v", cfg.MinQualityScore)
	}
	want := []domain.ProviderType{domain.ProviderTypeCrossref, domain.ProviderTypePubMed}
	if len(cfg.PrioritizeSources) != 2 || cfg.PrioritizeSources[0] != want[0] || cfg.PrioritizeSources[1] != want[1] {
		t.Errorf("expected sources %v, got %v", want, cfg.PrioritizeSources)
	}
}

func TestSearch_CustomDefaults(t *testing.T) {
	searcher := &mockSearcher{}
	defaults := func(q string) domain.SearchConfig {
		cfg := domain.DefaultSearchConfig(q)
		cfg.MaxTotalResults = 7
		return cfg
	}
	srv := NewServer(Config{}, searcher, newTestRegistry(true), defaults, zerolog.Nop())

	rr := postSearch(t, srv, map[string]any{"query": "cataract"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if searcher.lastCfg.MaxTotalResults != 7 {
		t.Errorf("expected server default 7, got %d", searcher.lastCfg.MaxTotalResults)
	}
}

func TestSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"query":`},
		{"wrong type", `{"query": 12}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &mockSearcher{}
			srv := newTestHTTPServer(searcher, newTestRegistry(true))

			rr := postSearch(t, srv, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			if searcher.calls != 0 {
				t.Errorf("searcher must not be called, got %d calls", searcher.calls)
			}
		})
	}
}

func TestSearch_ValidationError(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(context.Context, domain.SearchConfig) (*domain.SearchResult, error) {
			return nil, domain.NewValidationError("max_total_results", "must be at most 500")
		},
	}
	srv := newTestHTTPServer(searcher, newTestRegistry(true))

	rr := postSearch(t, srv, map[string]any{"query": "x", "max_total_results": 1000})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "validation error: max_total_results: must be at most 500" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}

func TestSearch_InternalErrorNotLeaked(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(context.Context, domain.SearchConfig) (*domain.SearchResult, error) {
			return nil, errors.New("secret connection string postgres://user:pw@db")
		},
	}
	srv := newTestHTTPServer(searcher, newTestRegistry(true))

	rr := postSearch(t, srv, map[string]any{"query": "x"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("postgres://")) {
		t.Errorf("internal error leaked: %s", rr.Body.String())
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", domain.NewValidationError("query", "must not be empty"), http.StatusBadRequest},
		{"wrapped invalid input", errors.Join(domain.ErrInvalidInput), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("search", "1"), http.StatusNotFound},
		{"rate limited", domain.NewRateLimitError("pubmed", time.Second), http.StatusTooManyRequests},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)
			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rr.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Providers and health
// ---------------------------------------------------------------------------

func TestListProviders(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{}, newTestRegistry(true))

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp listProvidersResponse
	decodeJSON(t, rr, &resp)

	wantOrder := []string{"pubmed", "crossref", "web_search"}
	if len(resp.Providers) != len(wantOrder) {
		t.Fatalf("expected %d providers, got %d", len(wantOrder), len(resp.Providers))
	}
	for i, want := range wantOrder {
		if resp.Providers[i].Type != want {
			t.Errorf("provider %d: expected %s, got %s", i, want, resp.Providers[i].Type)
		}
	}
	if resp.Providers[2].Enabled {
		t.Error("expected web_search to be disabled")
	}
	if resp.Providers[0].Name != "Stub pubmed" {
		t.Errorf("unexpected name %q", resp.Providers[0].Name)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{}, newTestRegistry(false))

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	t.Run("ready with enabled providers", func(t *testing.T) {
		srv := newTestHTTPServer(&mockSearcher{}, newTestRegistry(true))

		rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp map[string]any
		decodeJSON(t, rr, &resp)
		if resp["enabled_providers"] != float64(2) {
			t.Errorf("expected 2 enabled providers, got %v", resp["enabled_providers"])
		}
	})

	t.Run("not ready without providers", func(t *testing.T) {
		srv := newTestHTTPServer(&mockSearcher{}, newTestRegistry(false))

		rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
	})
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{}, newTestRegistry(true))

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
