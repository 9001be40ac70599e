package domain

import (
	"strings"
	"time"
)

// SourceSignals carries provider-specific facts that feed the quality scorer
// but are not part of the unified record's public shape.
type SourceSignals struct {
	// FullTextAvailable is set when the provider hosts the full text.
	FullTextAvailable bool

	// HasLicense is set when the provider reports at least one license.
	HasLicense bool

	// ReferenceCount is the number of references the work cites.
	ReferenceCount int

	// InfluentialCitationCount is the provider's count of influential citations.
	InfluentialCitationCount int
}

// UnifiedSource is the provider-agnostic normalized record of one publication.
type UnifiedSource struct {
	ID              string       `json:"id"`
	ProviderType    ProviderType `json:"provider_type"`
	Title           string       `json:"title"`
	Authors         []string     `json:"authors"`
	Journal         string       `json:"journal,omitempty"`
	PublicationDate time.Time    `json:"publication_date"`
	DOI             string       `json:"doi,omitempty"`
	PMID            string       `json:"pmid,omitempty"`
	URL             string       `json:"url"`
	Abstract        string       `json:"abstract,omitempty"`
	AISummary       string       `json:"ai_summary,omitempty"`
	CitationCount   int          `json:"citation_count"`
	IsOpenAccess    bool         `json:"is_open_access"`

	QualityScore   float64 `json:"quality_score"`
	RelevanceScore float64 `json:"relevance_score"`
	AuthorityScore float64 `json:"authority_score"`
	ImpactScore    float64 `json:"impact_score"`

	Keywords        []string `json:"keywords"`
	MeshTerms       []string `json:"mesh_terms"`
	Affiliations    []string `json:"affiliations"`
	PublicationType []string `json:"publication_type"`

	Signals SourceSignals `json:"-"`
}

// HasAbstract returns true if the record carries a non-blank abstract.
func (s *UnifiedSource) HasAbstract() bool {
	return strings.TrimSpace(s.Abstract) != ""
}

// HasDate returns true if the publication date is known.
func (s *UnifiedSource) HasDate() bool {
	return !s.PublicationDate.IsZero()
}

// PublishedSince returns true if the record has a known publication date
// on or after the cutoff.
func (s *UnifiedSource) PublishedSince(cutoff time.Time) bool {
	return s.HasDate() && !s.PublicationDate.Before(cutoff)
}

// Clone returns a deep copy of the record.
func (s *UnifiedSource) Clone() *UnifiedSource {
	if s == nil {
		return nil
	}
	c := *s
	c.Authors = cloneStrings(s.Authors)
	c.Keywords = cloneStrings(s.Keywords)
	c.MeshTerms = cloneStrings(s.MeshTerms)
	c.Affiliations = cloneStrings(s.Affiliations)
	c.PublicationType = cloneStrings(s.PublicationType)
	return &c
}

// CloneSources deep copies a slice of records.
func CloneSources(sources []*UnifiedSource) []*UnifiedSource {
	if sources == nil {
		return nil
	}
	out := make([]*UnifiedSource, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, s.Clone())
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// RecentWindowYears is the look-back window used by the recent-only filter
// and the recent publications metric.
const RecentWindowYears = 5

// RecentCutoff returns the earliest publication date that still counts as recent.
func RecentCutoff(now time.Time) time.Time {
	return now.AddDate(-RecentWindowYears, 0, 0)
}
