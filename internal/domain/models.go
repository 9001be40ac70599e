// Package domain provides domain models and business logic for the Literature Search Service.
package domain

// ProviderType identifies the external search provider that produced a record.
type ProviderType string

const (
	ProviderTypePubMed          ProviderType = "pubmed"
	ProviderTypeEuropePMC       ProviderType = "europepmc"
	ProviderTypeCrossref        ProviderType = "crossref"
	ProviderTypeSemanticScholar ProviderType = "semantic_scholar"
	ProviderTypeWebSearch       ProviderType = "web_search"
)

// canonicalProviders is the fixed default provider order. It doubles as the
// default deduplication priority.
var canonicalProviders = []ProviderType{
	ProviderTypePubMed,
	ProviderTypeEuropePMC,
	ProviderTypeCrossref,
	ProviderTypeSemanticScholar,
	ProviderTypeWebSearch,
}

// CanonicalProviders returns a copy of the default provider order.
func CanonicalProviders() []ProviderType {
	out := make([]ProviderType, len(canonicalProviders))
	copy(out, canonicalProviders)
	return out
}

// IsValid returns true if the provider type is one of the known providers.
func (p ProviderType) IsValid() bool {
	for _, known := range canonicalProviders {
		if p == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// SortStrategy selects how the final result set is ordered.
type SortStrategy string

const (
	SortByRelevance SortStrategy = "relevance"
	SortByQuality   SortStrategy = "quality"
	SortByCitations SortStrategy = "citations"
	SortByDate      SortStrategy = "date"
)

// IsValid returns true if the strategy is supported.
func (s SortStrategy) IsValid() bool {
	switch s {
	case SortByRelevance, SortByQuality, SortByCitations, SortByDate:
		return true
	default:
		return false
	}
}
