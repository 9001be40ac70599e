// Package crossref provides a search provider for the Crossref REST API.
//
// Crossref is the DOI registration agency for most scholarly publishers. The
// works endpoint returns deeply nested JSON whose shape varies by record type,
// so items are read with gjson paths instead of fixed structs.
//
// API documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for the public pool.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is used when the query does not set a limit.
	DefaultMaxResults = 10

	// MaxRows is the largest page the works endpoint accepts.
	MaxRows = 1000

	openLicenseHost = "creativecommons.org"

	sourceName = "Crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// Email is sent as mailto so requests are routed to the polite pool.
	Email string

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
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
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

// Client is a Crossref search provider.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements Provider.
var _ papersources.Provider = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			MaxRetries: cfg.MaxRetries,
			UserAgent:  userAgent,
		}),
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Type returns the provider type identifier.
func (c *Client) Type() domain.ProviderType {
	return domain.ProviderTypeCrossref
}

// Name returns the human-readable name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// BuildFilter returns the works filter expression for q, or "" when no
// filter applies.
func BuildFilter(q papersources.Query) string {
	var filters []string
	if q.IncludeAbstracts {
		filters = append(filters, "has-abstract:true")
	}
	if q.OpenAccessOnly {
		filters = append(filters, "has-license:true")
	}
	if q.RecentOnly {
		filters = append(filters, "from-pub-date:"+q.RecentFrom().Format("2006-01-02"))
	}
	return strings.Join(filters, ",")
}

// RequestParams returns the works query parameters for q.
func (c *Client) RequestParams(q papersources.Query) url.Values {
	rows := q.Limit
	if rows <= 0 {
		rows = DefaultMaxResults
	}
	if rows > MaxRows {
		rows = MaxRows
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(q.Text))
	params.Set("rows", strconv.Itoa(rows))
	if filter := BuildFilter(q); filter != "" {
		params.Set("filter", filter)
	}
	if c.config.Email != "" {
		params.Set("mailto", c.config.Email)
	}
	return params
}

// Search queries the Crossref works endpoint for records matching q.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]*domain.UnifiedSource, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("crossref: %w", domain.ErrProviderDisabled)
	}

	resp, err := c.httpClient.Get(ctx, c.config.BaseURL+"/works?"+c.RequestParams(q).Encode(), "application/json")
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
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parsing response: invalid JSON")
	}

	root := gjson.ParseBytes(body)
	if status := root.Get("status").String(); status != "" && status != "ok" {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, root.Get("message").String(), nil)
	}

	logger := zerolog.Ctx(ctx)
	items := root.Get("message.items").Array()
	records := make([]*domain.UnifiedSource, 0, len(items))
	for _, item := range items {
		record, err := itemToSource(item)
		if err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeCrossref)).Msg("skipping record")
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// itemToSource converts a single works item to a unified record.
func itemToSource(item gjson.Result) (*domain.UnifiedSource, error) {
	if !item.IsObject() {
		return nil, fmt.Errorf("work item is not an object")
	}

	doi := strings.TrimSpace(item.Get("DOI").String())
	if doi == "" {
		return nil, fmt.Errorf("work without DOI")
	}
	title := papersources.PlainText(item.Get("title.0").String())
	if title == "" {
		return nil, fmt.Errorf("work %s without title", doi)
	}

	link := strings.TrimSpace(item.Get("URL").String())
	if link == "" {
		link = "https://doi.org/" + doi
	}

	isOpenAccess, hasLicense := licenseFlags(item.Get("license"))

	return &domain.UnifiedSource{
		ID:              "crossref-" + doi,
		ProviderType:    domain.ProviderTypeCrossref,
		Title:           title,
		Authors:         extractAuthors(item.Get("author")),
		Journal:         papersources.CollapseSpace(item.Get("container-title.0").String()),
		PublicationDate: extractDate(item),
		DOI:             doi,
		URL:             link,
		Abstract:        papersources.PlainText(item.Get("abstract").String()),
		CitationCount:   max(0, int(item.Get("is-referenced-by-count").Int())),
		IsOpenAccess:    isOpenAccess,
		Keywords:        stringArray(item.Get("subject")),
		MeshTerms:       []string{},
		Affiliations:    extractAffiliations(item.Get("author")),
		PublicationType: publicationType(item.Get("type").String()),
		Signals: domain.SourceSignals{
			HasLicense:     hasLicense,
			ReferenceCount: max(0, int(item.Get("references-count").Int())),
		},
	}, nil
}

// licenseFlags reports whether any license is a Creative Commons license and
// whether any license is present at all.
func licenseFlags(licenses gjson.Result) (openAccess, hasLicense bool) {
	for _, l := range licenses.Array() {
		u := strings.TrimSpace(l.Get("URL").String())
		if u == "" {
			continue
		}
		hasLicense = true
		if strings.Contains(strings.ToLower(u), openLicenseHost) {
			openAccess = true
		}
	}
	return openAccess, hasLicense
}

// extractDate reads date-parts from the first populated date field.
func extractDate(item gjson.Result) time.Time {
	for _, field := range []string{"published", "issued", "published-print", "published-online", "created"} {
		parts := item.Get(field + ".date-parts.0").Array()
		if len(parts) == 0 || parts[0].Type != gjson.Number {
			continue
		}
		year := int(parts[0].Int())
		if year <= 0 {
			continue
		}
		month, day := 1, 1
		if len(parts) > 1 && parts[1].Int() >= 1 && parts[1].Int() <= 12 {
			month = int(parts[1].Int())
		}
		if len(parts) > 2 && parts[2].Int() >= 1 && parts[2].Int() <= 31 {
			day = int(parts[2].Int())
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func extractAuthors(authors gjson.Result) []string {
	names := []string{}
	for _, a := range authors.Array() {
		name := strings.TrimSpace(a.Get("given").String() + " " + a.Get("family").String())
		if name == "" {
			name = strings.TrimSpace(a.Get("name").String())
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func extractAffiliations(authors gjson.Result) []string {
	seen := make(map[string]bool)
	affiliations := []string{}
	for _, a := range authors.Array() {
		for _, aff := range a.Get("affiliation.#.name").Array() {
			name := strings.TrimSpace(aff.String())
			if name != "" && !seen[name] {
				seen[name] = true
				affiliations = append(affiliations, name)
			}
		}
	}
	return affiliations
}

func stringArray(values gjson.Result) []string {
	out := []string{}
	for _, v := range values.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func publicationType(t string) []string {
	if t = strings.TrimSpace(t); t == "" {
		return []string{}
	}
	return []string{t}
}
