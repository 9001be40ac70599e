// Package websearch provides a general web search provider.
//
// Two backends are supported: a SearXNG instance queried through its JSON
// API, and the DuckDuckGo lite HTML page parsed with goquery. Web results have
// no DOI or PMID and are scored mostly on the authority of their domain.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

// Format selects the web search backend.
type Format string

const (
	// FormatSearXNG queries a SearXNG instance's JSON API.
	FormatSearXNG Format = "searxng"

	// FormatDuckDuckGo scrapes the DuckDuckGo lite HTML interface.
	FormatDuckDuckGo Format = "duckduckgo"
)

const (
	// DefaultSearXNGURL is the default SearXNG instance.
	DefaultSearXNGURL = "http://localhost:8888"

	// DefaultDuckDuckGoURL is the DuckDuckGo lite endpoint.
	DefaultDuckDuckGoURL = "https://lite.duckduckgo.com/lite/"

	// DefaultQuerySuffix narrows general web results to medical content.
	DefaultQuerySuffix = "medical research"

	// DefaultRateLimit is the default rate limit (1 request per second).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is used when the query does not set a limit.
	DefaultMaxResults = 10

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	sourceName = "Web Search"
)

// publishedLayouts are the date formats SearXNG engines emit.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Config holds configuration for the web search client.
type Config struct {
	// Format selects the backend. Defaults to FormatSearXNG.
	Format Format

	// BaseURL is the backend endpoint. Defaults depend on Format.
	BaseURL string

	// QuerySuffix is appended to every query. Defaults to DefaultQuerySuffix;
	// set DisableSuffix to send the query unchanged.
	QuerySuffix   string
	DisableSuffix bool

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is passed to the HTTP client. Zero disables retries.
	MaxRetries int

	// Enabled indicates whether this provider is enabled for searches.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.Format == "" {
		c.Format = FormatSearXNG
	}
	if c.BaseURL == "" {
		if c.Format == FormatDuckDuckGo {
			c.BaseURL = DefaultDuckDuckGoURL
		} else {
			c.BaseURL = DefaultSearXNGURL
		}
	}
	if c.QuerySuffix == "" && !c.DisableSuffix {
		c.QuerySuffix = DefaultQuerySuffix
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client is a web search provider.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements Provider.
var _ papersources.Provider = (*Client)(nil)

// New creates a new web search client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Format == FormatDuckDuckGo {
		httpCfg.UserAgent = browserUserAgent
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new web search client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Type returns the provider type identifier.
func (c *Client) Type() domain.ProviderType {
	return domain.ProviderTypeWebSearch
}

// Name returns the human-readable name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// BuildQuery appends the configured qualifier terms to the query text.
func (c *Client) BuildQuery(q papersources.Query) string {
	text := strings.TrimSpace(q.Text)
	if c.config.QuerySuffix == "" {
		return text
	}
	return text + " " + c.config.QuerySuffix
}

// RequestParams returns the parameters that identify a web search. The
// DuckDuckGo backend sends only q on the wire and truncates locally.
func (c *Client) RequestParams(q papersources.Query) url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("q", c.BuildQuery(q))
	params.Set("number_of_results", strconv.Itoa(limit))
	if c.config.Format == FormatSearXNG {
		params.Set("format", "json")
		params.Set("pageno", "1")
	}
	return params
}

// Search runs q against the configured backend.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]*domain.UnifiedSource, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("web search: %w", domain.ErrProviderDisabled)
	}

	params := c.RequestParams(q)
	limit, _ := strconv.Atoi(params.Get("number_of_results"))

	var (
		hits []hit
		err  error
	)
	switch c.config.Format {
	case FormatDuckDuckGo:
		hits, err = c.searchDuckDuckGo(ctx, params.Get("q"))
	default:
		hits, err = c.searchSearXNG(ctx, params)
	}
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	records := make([]*domain.UnifiedSource, 0, min(len(hits), limit))
	for _, h := range hits {
		if len(records) >= limit {
			break
		}
		record, err := hitToSource(h)
		if err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeWebSearch)).Msg("skipping record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// hit is a backend-neutral web result.
type hit struct {
	Title         string
	URL           string
	Content       string
	PublishedDate string
}

// searxngResponse represents a SearXNG API response.
type searxngResponse struct {
	Query   string            `json:"query"`
	Results []json.RawMessage `json:"results"`
}

type searxngResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate *string `json:"publishedDate,omitempty"`
}

func (c *Client) searchSearXNG(ctx context.Context, params url.Values) ([]hit, error) {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/search?" + params.Encode()
	body, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	var resp searxngResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	hits := make([]hit, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var r searxngResult
		if err := json.Unmarshal(raw, &r); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("provider", string(domain.ProviderTypeWebSearch)).Msg("skipping record")
			continue
		}
		h := hit{Title: r.Title, URL: r.URL, Content: r.Content}
		if r.PublishedDate != nil {
			h.PublishedDate = *r.PublishedDate
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func (c *Client) searchDuckDuckGo(ctx context.Context, query string) ([]hit, error) {
	endpoint := c.config.BaseURL + "?" + url.Values{"q": {query}}.Encode()
	body, err := c.get(ctx, endpoint, "text/html")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return parseDuckDuckGoLite(doc), nil
}

// parseDuckDuckGoLite extracts results from the lite page, where each result
// link is followed by a snippet cell in a later table row.
func parseDuckDuckGoLite(doc *goquery.Document) []hit {
	var hits []hit
	links := doc.Find("a.result-link")
	snippets := doc.Find("td.result-snippet")

	links.Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		h := hit{
			Title: papersources.CollapseSpace(s.Text()),
			URL:   resolveDuckDuckGoURL(href),
		}
		if i < snippets.Length() {
			h.Content = papersources.CollapseSpace(snippets.Eq(i).Text())
		}
		hits = append(hits, h)
	})
	return hits
}

// resolveDuckDuckGoURL unwraps DuckDuckGo redirect links of the form
// //duckduckgo.com/l/?uddg=<target>.
func resolveDuckDuckGoURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, endpoint, accept)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := papersources.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}
	return body, nil
}

// hitToSource converts a web result to a unified record. The ID is a name
// based UUID of the URL so the same page always yields the same ID.
func hitToSource(h hit) (*domain.UnifiedSource, error) {
	link := strings.TrimSpace(h.URL)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("result with invalid url %q", h.URL)
	}
	title := papersources.PlainText(h.Title)
	if title == "" {
		return nil, fmt.Errorf("result %s without title", link)
	}

	return &domain.UnifiedSource{
		ID:              "web_search-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String(),
		ProviderType:    domain.ProviderTypeWebSearch,
		Title:           title,
		Authors:         []string{},
		Journal:         u.Hostname(),
		PublicationDate: parsePublished(h.PublishedDate),
		URL:             link,
		Abstract:        papersources.PlainText(h.Content),
		IsOpenAccess:    false,
		Keywords:        []string{},
		MeshTerms:       []string{},
		Affiliations:    []string{},
		PublicationType: []string{"web_page"},
	}, nil
}

func parsePublished(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
