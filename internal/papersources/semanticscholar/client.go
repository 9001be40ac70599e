package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is used when the query does not set a limit.
	DefaultMaxResults = 10

	// MaxResultsLimit is the largest page the search endpoint accepts.
	MaxResultsLimit = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,url,title,abstract,year,publicationDate,venue,journal,authors," +
		"citationCount,influentialCitationCount,referenceCount,isOpenAccess,openAccessPdf," +
		"tldr,publicationTypes,fieldsOfStudy"

	paperURLPrefix = "https://www.semanticscholar.org/paper/"

	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxRetries is passed to the HTTP client. Zero disables retries.
	MaxRetries int

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
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

// Client implements the papersources.Provider interface for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// Compile-time check that Client implements papersources.Provider.
var _ papersources.Provider = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			MaxRetries:   cfg.MaxRetries,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Type returns the provider type identifier.
func (c *Client) Type() domain.ProviderType {
	return domain.ProviderTypeSemanticScholar
}

// Name returns the human-readable name for this provider.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this provider is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// RequestParams returns the paper search query parameters for q.
func (c *Client) RequestParams(q papersources.Query) url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(q.Text))
	params.Set("fields", paperFields)
	params.Set("limit", strconv.Itoa(limit))

	if q.OpenAccessOnly {
		params.Set("openAccessPdf", "")
	}
	if q.RecentOnly {
		params.Set("year", fmt.Sprintf("%d-", q.RecentFrom().Year()))
	}
	return params
}

// Search queries Semantic Scholar for papers matching q.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]*domain.UnifiedSource, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("semantic scholar: %w", domain.ErrProviderDisabled)
	}

	searchURL := strings.TrimRight(c.config.BaseURL, "/") + "/paper/search?" + c.RequestParams(q).Encode()

	resp, err := c.httpClient.Get(ctx, searchURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body, err := papersources.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if err := handleErrorResponse(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	records := make([]*domain.UnifiedSource, 0, len(searchResp.Data))
	for _, raw := range searchResp.Data {
		var paper PaperResult
		if err := json.Unmarshal(raw, &paper); err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeSemanticScholar)).Msg("skipping record")
			continue
		}
		record, err := convertToSource(paper)
		if err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeSemanticScholar)).Msg("skipping record")
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, statusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, statusCode, string(body), nil)
}

// convertToSource converts a single API paper result to a unified record.
func convertToSource(result PaperResult) (*domain.UnifiedSource, error) {
	if result.PaperID == "" {
		return nil, fmt.Errorf("paper without id")
	}
	title := papersources.CollapseSpace(result.Title)
	if title == "" {
		return nil, fmt.Errorf("paper %s without title", result.PaperID)
	}

	record := &domain.UnifiedSource{
		ID:              "semantic_scholar-" + result.PaperID,
		ProviderType:    domain.ProviderTypeSemanticScholar,
		Title:           title,
		Authors:         convertAuthors(result.Authors),
		Journal:         result.Venue,
		PublicationDate: parsePublicationDate(result.PublicationDate, result.Year),
		URL:             result.URL,
		Abstract:        strings.TrimSpace(result.Abstract),
		CitationCount:   max(0, result.CitationCount),
		IsOpenAccess:    result.IsOpenAccess || (result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != ""),
		Keywords:        nonNil(result.FieldsOfStudy),
		MeshTerms:       []string{},
		Affiliations:    []string{},
		PublicationType: nonNil(result.PublicationTypes),
		Signals: domain.SourceSignals{
			FullTextAvailable:        result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "",
			ReferenceCount:           max(0, result.ReferenceCount),
			InfluentialCitationCount: max(0, result.InfluentialCitationCount),
		},
	}

	if result.Journal != nil && result.Journal.Name != "" {
		record.Journal = result.Journal.Name
	}
	if result.TLDR != nil {
		record.AISummary = strings.TrimSpace(result.TLDR.Text)
	}
	if result.ExternalIDs != nil {
		record.DOI = strings.TrimSpace(result.ExternalIDs.DOI)
		record.PMID = strings.TrimSpace(result.ExternalIDs.PubMed)
	}
	if record.URL == "" {
		record.URL = paperURLPrefix + result.PaperID
	}

	return record, nil
}

// parsePublicationDate uses the full date when present, otherwise January 1st
// of the year. A zero time means the date is unknown.
func parsePublicationDate(date string, year int) time.Time {
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return t
		}
	}
	if year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func convertAuthors(apiAuthors []Author) []string {
	authors := make([]string, 0, len(apiAuthors))
	for _, a := range apiAuthors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
