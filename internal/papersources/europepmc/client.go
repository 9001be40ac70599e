package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Europe PMC API base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is used when the query does not set a limit.
	DefaultMaxResults = 10

	// MaxPageSize is the largest page size the search endpoint accepts.
	MaxPageSize = 1000

	articleURLPrefix = "https://europepmc.org/article/"

	sourceName = "Europe PMC"
)

// Config holds configuration for the Europe PMC client.
type Config struct {
	// BaseURL is the Europe PMC API base URL.
	BaseURL string

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

// Client is a Europe PMC search provider.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements Provider.
var _ papersources.Provider = (*Client)(nil)

// New creates a new Europe PMC client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			MaxRetries: cfg.MaxRetries,
		}),
	}
}

// NewWithHTTPClient creates a new Europe PMC client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Type returns the provider type identifier.
func (c *Client) Type() domain.ProviderType {
	return domain.ProviderTypeEuropePMC
}

// Name returns the human-readable name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// BuildQuery translates q into Europe PMC query syntax.
func BuildQuery(q papersources.Query) string {
	query := strings.TrimSpace(q.Text)
	if q.OpenAccessOnly {
		query += " AND OPEN_ACCESS:y"
	}
	if q.RecentOnly {
		query += " AND " + buildDateFilter(q.RecentFrom(), q.Until())
	}
	return query
}

// buildDateFilter constructs the Europe PMC first publication date filter.
func buildDateFilter(from, to time.Time) string {
	fromStr, toStr := "*", "*"
	if !from.IsZero() {
		fromStr = from.Format("2006-01-02")
	}
	if !to.IsZero() {
		toStr = to.Format("2006-01-02")
	}
	return fmt.Sprintf("FIRST_PDATE:[%s TO %s]", fromStr, toStr)
}

// RequestParams returns the search query parameters for q.
func (c *Client) RequestParams(q papersources.Query) url.Values {
	pageSize := q.Limit
	if pageSize <= 0 {
		pageSize = DefaultMaxResults
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	resultType := "lite"
	if q.IncludeAbstracts {
		resultType = "core"
	}

	params := url.Values{}
	params.Set("query", BuildQuery(q))
	params.Set("format", "json")
	params.Set("resultType", resultType)
	params.Set("pageSize", strconv.Itoa(pageSize))
	return params
}

// Search queries Europe PMC for articles matching q.
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]*domain.UnifiedSource, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("europe pmc: %w", domain.ErrProviderDisabled)
	}

	resp, err := c.httpClient.Get(ctx, c.config.BaseURL+"/search?"+c.RequestParams(q).Encode(), "application/json")
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

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	records := make([]*domain.UnifiedSource, 0, len(searchResp.ResultList.Result))
	for _, raw := range searchResp.ResultList.Result {
		var article Article
		if err := json.Unmarshal(raw, &article); err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeEuropePMC)).Msg("skipping record")
			continue
		}
		record, err := articleToSource(article)
		if err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypeEuropePMC)).Msg("skipping record")
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// articleToSource converts a Europe PMC article to a unified record.
func articleToSource(article Article) (*domain.UnifiedSource, error) {
	id := strings.TrimSpace(article.ID)
	if id == "" {
		return nil, fmt.Errorf("article without id")
	}
	title := papersources.PlainText(article.Title)
	if title == "" {
		return nil, fmt.Errorf("article %s without title", id)
	}

	source := strings.TrimSpace(article.Source)
	if source == "" {
		source = "MED"
	}

	authors := extractAuthors(article.AuthorList)
	if len(authors) == 0 {
		authors = parseAuthorString(article.AuthorString)
	}

	fullText := yes(article.InEPMC) || yes(article.HasPDF)

	return &domain.UnifiedSource{
		ID:              "europepmc-" + id,
		ProviderType:    domain.ProviderTypeEuropePMC,
		Title:           title,
		Authors:         authors,
		Journal:         journalTitle(article),
		PublicationDate: parsePublicationDate(article.FirstPublicationDate, article.PubYear),
		DOI:             strings.TrimSpace(article.DOI),
		PMID:            strings.TrimSpace(article.PMID),
		URL:             articleURLPrefix + source + "/" + id,
		Abstract:        papersources.PlainText(article.AbstractText),
		CitationCount:   max(0, article.CitedByCount),
		IsOpenAccess:    yes(article.IsOpenAccess),
		Keywords:        extractKeywords(article.KeywordList),
		MeshTerms:       extractMeshTerms(article.MeshHeadingList),
		Affiliations:    extractAffiliations(article),
		PublicationType: extractPubTypes(article.PubTypeList),
		Signals: domain.SourceSignals{
			FullTextAvailable: fullText,
			HasLicense:        strings.TrimSpace(article.License) != "",
		},
	}, nil
}

func yes(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "Y")
}

func journalTitle(article Article) string {
	if t := strings.TrimSpace(article.JournalTitle); t != "" {
		return t
	}
	if article.JournalInfo != nil {
		return strings.TrimSpace(article.JournalInfo.Journal.Title)
	}
	return ""
}

// parsePublicationDate prefers firstPublicationDate and falls back to January
// 1st of pubYear. A zero time means the date is unknown.
func parsePublicationDate(date, year string) time.Time {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(date)); err == nil {
		return t
	}
	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && y > 0 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

func extractAuthors(list *AuthorList) []string {
	if list == nil {
		return nil
	}
	authors := make([]string, 0, len(list.Author))
	for _, a := range list.Author {
		name := strings.TrimSpace(a.FullName)
		if name == "" && a.LastName != "" {
			name = strings.TrimSpace(a.LastName + " " + a.Initials)
		}
		if name == "" {
			name = strings.TrimSpace(a.CollectiveName)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// parseAuthorString parses the Europe PMC authorString field, which lists
// "Surname Initials" entries separated by ", " and ends with a period.
func parseAuthorString(authorString string) []string {
	authorString = strings.TrimSuffix(strings.TrimSpace(authorString), ".")
	if authorString == "" {
		return []string{}
	}

	parts := strings.Split(authorString, ", ")
	authors := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func extractAffiliations(article Article) []string {
	seen := make(map[string]bool)
	affiliations := []string{}
	add := func(aff string) {
		aff = strings.TrimSpace(aff)
		if aff != "" && !seen[aff] {
			seen[aff] = true
			affiliations = append(affiliations, aff)
		}
	}

	if article.AuthorList != nil {
		for _, a := range article.AuthorList.Author {
			if a.AuthorAffiliationDetailsList == nil {
				continue
			}
			for _, aff := range a.AuthorAffiliationDetailsList.AuthorAffiliation {
				add(aff.Affiliation)
			}
		}
	}
	add(article.AffiliationString)
	return affiliations
}

func extractKeywords(list *KeywordList) []string {
	keywords := []string{}
	if list == nil {
		return keywords
	}
	for _, kw := range list.Keyword {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func extractMeshTerms(list *MeshList) []string {
	terms := []string{}
	if list == nil {
		return terms
	}
	for _, mh := range list.MeshHeading {
		if name := strings.TrimSpace(mh.DescriptorName); name != "" {
			terms = append(terms, name)
		}
	}
	return terms
}

func extractPubTypes(list *PubTypeList) []string {
	types := []string{}
	if list == nil {
		return types
	}
	for _, pt := range list.PubType {
		if pt = strings.TrimSpace(pt); pt != "" {
			types = append(types, pt)
		}
	}
	return types
}
