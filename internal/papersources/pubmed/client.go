package pubmed

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is used when the query does not set a limit.
	DefaultMaxResults = 10

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// articleURLPrefix is the base of the public article page.
	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	APIKey string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxRetries is passed to the HTTP client. Zero disables retries.
	MaxRetries int

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

// applyDefaults applies default values to the config.
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

// Client implements the papersources.Provider interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements Provider.
var _ papersources.Provider = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  papersources.DefaultUserAgent + " (mailto:support@helixir.io)",
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Type returns the provider type identifier.
func (c *Client) Type() domain.ProviderType {
	return domain.ProviderTypePubMed
}

// Name returns the human-readable name for this provider.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// BuildTerm translates a query into PubMed search syntax.
func BuildTerm(q papersources.Query) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.TrimSpace(q.Text))
	b.WriteString(")")

	if q.IncludeAbstracts {
		b.WriteString(" AND hasabstract[text]")
	}
	if q.OpenAccessOnly {
		b.WriteString(" AND free full text[sb]")
	}
	if q.RecentOnly {
		fmt.Fprintf(&b, ` AND ("%s"[dp] : "3000"[dp])`, q.RecentFrom().Format("2006/01/02"))
	}
	return b.String()
}

// RequestParams returns the esearch parameters for q. The API key is left out.
func (c *Client) RequestParams(q papersources.Query) url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", BuildTerm(q))
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "xml")
	params.Set("sort", "relevance")
	params.Set("usehistory", "n")
	return params
}

// Search queries PubMed for records matching q.
// It performs a two-step search:
// 1. esearch.fcgi - retrieves PMIDs matching the query
// 2. efetch.fcgi - retrieves full article metadata for the PMIDs
func (c *Client) Search(ctx context.Context, q papersources.Query) ([]*domain.UnifiedSource, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("pubmed: %w", domain.ErrProviderDisabled)
	}

	searchResult, err := c.esearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return []*domain.UnifiedSource{}, nil
	}
	if searchResult.ERROR != "" {
		return nil, domain.NewExternalAPIError(sourceName, http.StatusOK, searchResult.ERROR, nil)
	}
	if len(searchResult.IDList.IDs) == 0 {
		return []*domain.UnifiedSource{}, nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	records := make([]*domain.UnifiedSource, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		record, err := articleToSource(article)
		if err != nil {
			logger.Debug().Err(err).Str("provider", string(domain.ProviderTypePubMed)).Msg("skipping record")
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, q papersources.Query) (*ESearchResult, error) {
	params := c.RequestParams(q)
	c.addAPIKey(params)

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	c.addAPIKey(params)

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	return &result, nil
}

func (c *Client) addAPIKey(params url.Values) {
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, c.config.BaseURL+path+"?"+params.Encode(), "application/xml")
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

// articleToSource converts a PubmedArticle to a unified record.
func articleToSource(article PubmedArticle) (*domain.UnifiedSource, error) {
	citation := article.MedlineCitation
	pmid := strings.TrimSpace(citation.PMID.Value)
	if pmid == "" {
		return nil, fmt.Errorf("article without PMID")
	}

	title := papersources.PlainText(citation.Article.ArticleTitle.Inner)
	if title == "" {
		return nil, fmt.Errorf("article %s without title", pmid)
	}

	pmcid := extractPMCID(article.PubmedData)

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	return &domain.UnifiedSource{
		ID:              "pubmed-" + pmid,
		ProviderType:    domain.ProviderTypePubMed,
		Title:           title,
		Authors:         extractAuthors(citation.Article.AuthorList),
		Journal:         journal,
		PublicationDate: extractPublicationDate(citation.Article),
		DOI:             extractDOI(citation.Article, article.PubmedData),
		PMID:            pmid,
		URL:             articleURLPrefix + pmid + "/",
		Abstract:        extractAbstract(citation.Article.Abstract),
		IsOpenAccess:    pmcid != "",
		Keywords:        extractKeywords(citation.KeywordList),
		MeshTerms:       extractMeshTerms(citation.MeshHeadingList),
		Affiliations:    extractAffiliations(citation.Article.AuthorList),
		PublicationType: extractPublicationTypes(citation.Article.PublicationTypeList),
		Signals: domain.SourceSignals{
			FullTextAvailable: pmcid != "",
		},
	}, nil
}

func extractPMCID(data PubmedData) string {
	for _, aid := range data.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" {
			return strings.TrimSpace(aid.Value)
		}
	}
	return ""
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return strings.TrimSpace(eloc.Value)
		}
	}

	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return strings.TrimSpace(aid.Value)
		}
	}

	return ""
}

// extractPublicationDate prefers ArticleDate, then PubDate, then MedlineDate.
// A zero time means the date is unknown.
func extractPublicationDate(article Article) time.Time {
	for _, ad := range article.ArticleDate {
		if ad.DateType == "epublish" || ad.DateType == "Electronic" || ad.DateType == "" {
			if t, ok := parseDate(ad.Year, ad.Month, ad.Day); ok {
				return t
			}
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if t, ok := parseDate(pubDate.Year, pubDate.Month, pubDate.Day); ok {
		return t
	}

	// MedlineDate format (e.g., "2020 Jan-Feb")
	if year := extractYearFromMedlineDate(pubDate.MedlineDate); year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	return time.Time{}
}

// parseDate parses year, month, day strings into a time.Time.
func parseDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y <= 0 {
		return time.Time{}, false
	}

	m := parseMonth(month)
	d := 1
	if day != "" {
		if parsed, err := strconv.Atoi(day); err == nil && parsed >= 1 && parsed <= 31 {
			d = parsed
		}
	}

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// monthNames maps lowercase month name strings (abbreviation and full) to time.Month.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth parses a month string (numeric or name) into time.Month.
func parseMonth(month string) time.Month {
	if month == "" {
		return time.January
	}

	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return time.Month(m)
	}

	if m, ok := monthNames[strings.ToLower(month)]; ok {
		return m
	}

	return time.January
}

// extractYearFromMedlineDate extracts the year from a MedlineDate string
// such as "2020 Jan-Feb", "2020 Spring" or "2020-2021".
func extractYearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) > 0 {
		yearStr := strings.Split(parts[0], "-")[0]
		if year, err := strconv.Atoi(yearStr); err == nil {
			return year
		}
	}
	return 0
}

// extractAbstract joins abstract sections, prefixing labelled ones.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		text := papersources.PlainText(at.Inner)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors returns display names in "LastName Initials" form, falling
// back to the fore name or the collective name.
func extractAuthors(authorList *AuthorList) []string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return []string{}
	}

	authors := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		switch {
		case a.CollectiveName != "":
			name = a.CollectiveName
		case a.LastName != "" && a.Initials != "":
			name = a.LastName + " " + a.Initials
		default:
			name = strings.TrimSpace(a.ForeName + " " + a.LastName)
		}

		if name != "" {
			authors = append(authors, name)
		}
	}

	return authors
}

func extractAffiliations(authorList *AuthorList) []string {
	if authorList == nil {
		return []string{}
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, a := range authorList.Authors {
		for _, info := range a.AffiliationInfo {
			aff := strings.TrimSpace(info.Affiliation)
			if aff == "" || seen[aff] {
				continue
			}
			seen[aff] = true
			out = append(out, aff)
		}
	}
	return out
}

func extractMeshTerms(list *MeshHeadingList) []string {
	if list == nil {
		return []string{}
	}
	out := make([]string, 0, len(list.MeshHeadings))
	for _, mh := range list.MeshHeadings {
		if term := strings.TrimSpace(mh.DescriptorName.Value); term != "" {
			out = append(out, term)
		}
	}
	return out
}

func extractKeywords(lists []KeywordList) []string {
	out := []string{}
	for _, list := range lists {
		for _, kw := range list.Keywords {
			if kw := papersources.CollapseSpace(kw.Value); kw != "" {
				out = append(out, kw)
			}
		}
	}
	return out
}

func extractPublicationTypes(list *PublicationTypeList) []string {
	if list == nil {
		return []string{}
	}
	out := make([]string, 0, len(list.PublicationTypes))
	for _, pt := range list.PublicationTypes {
		if v := strings.TrimSpace(pt.Value); v != "" {
			out = append(out, v)
		}
	}
	return out
}
