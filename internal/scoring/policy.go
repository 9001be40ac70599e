// Package scoring assigns quality, relevance, authority and impact scores to
// unified records using a per-provider policy table.
package scoring

import (
	"github.com/helixir/literature-search-service/internal/domain"
)

// Rule is a named quality bonus applied when its predicate holds.
type Rule struct {
	Name    string
	Bonus   float64
	Applies func(*domain.UnifiedSource) bool
}

// Policy describes how records from one provider are scored.
type Policy struct {
	// Base is the starting quality score.
	Base float64

	// Authority is the static authority baseline.
	Authority float64

	// Rules are the quality bonuses.
	Rules []Rule

	// Impact computes the impact score. Nil uses the citation count.
	Impact func(*domain.UnifiedSource) float64

	// DomainAuthority adds the matched URL domain bonus (or penalty) to both
	// quality and authority.
	DomainAuthority bool
}

// DefaultPolicies returns the policy table for the built-in providers.
func DefaultPolicies() map[domain.ProviderType]Policy {
	return map[domain.ProviderType]Policy{
		domain.ProviderTypePubMed: {
			Base:      70,
			Authority: 90,
			Rules: []Rule{
				{Name: "abstract", Bonus: 15, Applies: hasAbstract},
				{Name: "mesh_terms", Bonus: 10, Applies: func(s *domain.UnifiedSource) bool { return len(s.MeshTerms) >= 3 }},
				{Name: "doi", Bonus: 5, Applies: func(s *domain.UnifiedSource) bool { return s.DOI != "" }},
			},
		},
		domain.ProviderTypeEuropePMC: {
			Base:      75,
			Authority: 85,
			Rules: []Rule{
				{Name: "abstract", Bonus: 10, Applies: hasAbstract},
				{Name: "open_access", Bonus: 10, Applies: isOpenAccess},
				{Name: "full_text", Bonus: 5, Applies: func(s *domain.UnifiedSource) bool { return s.Signals.FullTextAvailable }},
			},
		},
		domain.ProviderTypeCrossref: {
			Base:      65,
			Authority: 75,
			Rules: []Rule{
				{Name: "cited", Bonus: 15, Applies: func(s *domain.UnifiedSource) bool { return s.CitationCount > 10 }},
				{Name: "open_access", Bonus: 10, Applies: isOpenAccess},
				{Name: "license", Bonus: 5, Applies: func(s *domain.UnifiedSource) bool { return s.Signals.HasLicense }},
				{Name: "references", Bonus: 5, Applies: func(s *domain.UnifiedSource) bool { return s.Signals.ReferenceCount > 20 }},
			},
		},
		domain.ProviderTypeSemanticScholar: {
			Base:      70,
			Authority: 80,
			Rules: []Rule{
				{Name: "abstract", Bonus: 10, Applies: hasAbstract},
				{Name: "ai_summary", Bonus: 5, Applies: func(s *domain.UnifiedSource) bool { return s.AISummary != "" }},
				{Name: "influential", Bonus: 10, Applies: func(s *domain.UnifiedSource) bool { return s.Signals.InfluentialCitationCount > 5 }},
				{Name: "open_access", Bonus: 5, Applies: isOpenAccess},
			},
			// Influential citations weighted twice instead of total citations.
			// TODO: confirm with ranking owners whether other providers should get the same weighting.
			Impact: func(s *domain.UnifiedSource) float64 { return float64(s.Signals.InfluentialCitationCount) * 2 },
		},
		domain.ProviderTypeWebSearch: {
			Base:            30,
			Authority:       40,
			DomainAuthority: true,
		},
	}
}

func hasAbstract(s *domain.UnifiedSource) bool { return s.HasAbstract() }

func isOpenAccess(s *domain.UnifiedSource) bool { return s.IsOpenAccess }
