package httpserver

import (
	"github.com/helixir/literature-search-service/internal/domain"
)

// Search response types for JSON serialization.

type searchResponse struct {
	SearchID          string                `json:"search_id"`
	Query             string                `json:"query"`
	Sources           []sourceResponse      `json:"sources"`
	TotalFound        int                   `json:"total_found"`
	SourceBreakdown   map[string]int        `json:"source_breakdown"`
	QualityMetrics    domain.QualityMetrics `json:"quality_metrics"`
	DuplicatesRemoved int                   `json:"duplicates_removed"`
	SearchStrategies  []string              `json:"search_strategies"`
	ProviderErrors    map[string]string     `json:"provider_errors,omitempty"`
	DurationMS        int64                 `json:"duration_ms"`
}

type sourceResponse struct {
	ID              string   `json:"id"`
	ProviderType    string   `json:"provider_type"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	PMID            string   `json:"pmid,omitempty"`
	URL             string   `json:"url"`
	Abstract        string   `json:"abstract,omitempty"`
	AISummary       string   `json:"ai_summary,omitempty"`
	CitationCount   int      `json:"citation_count"`
	IsOpenAccess    bool     `json:"is_open_access"`
	QualityScore    float64  `json:"quality_score"`
	RelevanceScore  float64  `json:"relevance_score"`
	AuthorityScore  float64  `json:"authority_score"`
	ImpactScore     float64  `json:"impact_score"`
	Keywords        []string `json:"keywords"`
	MeshTerms       []string `json:"mesh_terms"`
	Affiliations    []string `json:"affiliations"`
	PublicationType []string `json:"publication_type"`
}

type providerResponse struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type listProvidersResponse struct {
	Providers []providerResponse `json:"providers"`
}

// Converter functions

func domainResultToResponse(r *domain.SearchResult) searchResponse {
	sources := make([]sourceResponse, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = domainSourceToResponse(s)
	}

	breakdown := make(map[string]int, len(r.SourceBreakdown))
	for pt, n := range r.SourceBreakdown {
		breakdown[string(pt)] = n
	}

	var providerErrors map[string]string
	if len(r.ProviderErrors) > 0 {
		providerErrors = make(map[string]string, len(r.ProviderErrors))
		for pt, msg := range r.ProviderErrors {
			providerErrors[string(pt)] = msg
		}
	}

	strategies := r.SearchStrategies
	if strategies == nil {
		strategies = []string{}
	}

	return searchResponse{
		SearchID:          r.SearchID.String(),
		Query:             r.Query,
		Sources:           sources,
		TotalFound:        r.TotalFound,
		SourceBreakdown:   breakdown,
		QualityMetrics:    r.QualityMetrics,
		DuplicatesRemoved: r.DuplicatesRemoved,
		SearchStrategies:  strategies,
		ProviderErrors:    providerErrors,
		DurationMS:        r.DurationMS,
	}
}

func domainSourceToResponse(s *domain.UnifiedSource) sourceResponse {
	resp := sourceResponse{
		ID:              s.ID,
		ProviderType:    string(s.ProviderType),
		Title:           s.Title,
		Authors:         nonNil(s.Authors),
		Journal:         s.Journal,
		DOI:             s.DOI,
		PMID:            s.PMID,
		URL:             s.URL,
		Abstract:        s.Abstract,
		AISummary:       s.AISummary,
		CitationCount:   s.CitationCount,
		IsOpenAccess:    s.IsOpenAccess,
		QualityScore:    s.QualityScore,
		RelevanceScore:  s.RelevanceScore,
		AuthorityScore:  s.AuthorityScore,
		ImpactScore:     s.ImpactScore,
		Keywords:        nonNil(s.Keywords),
		MeshTerms:       nonNil(s.MeshTerms),
		Affiliations:    nonNil(s.Affiliations),
		PublicationType: nonNil(s.PublicationType),
	}
	if s.HasDate() {
		resp.PublicationDate = s.PublicationDate.Format("2006-01-02")
	}
	return resp
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
