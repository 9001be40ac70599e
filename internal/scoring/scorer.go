package scoring

import (
	"strings"

	"github.com/helixir/literature-search-service/internal/domain"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Scorer applies a policy table to records. It is read-only after
// construction and safe for concurrent use.
type Scorer struct {
	policies map[domain.ProviderType]Policy
	domains  DomainTable
}

// New creates a Scorer with the given policies and domain table. Nil
// arguments select the defaults.
func New(policies map[domain.ProviderType]Policy, domains DomainTable) *Scorer {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if domains == nil {
		domains = DefaultDomains()
	}
	return &Scorer{policies: policies, domains: domains}
}

// NewDefault creates a Scorer with the built-in policies.
func NewDefault() *Scorer {
	return New(nil, nil)
}

// ScoreAll scores every record in place against query.
func (s *Scorer) ScoreAll(query string, records []*domain.UnifiedSource) {
	terms := QueryTerms(query)
	for _, r := range records {
		if r != nil {
			s.score(terms, r)
		}
	}
}

// Score scores a single record in place against query.
func (s *Scorer) Score(query string, record *domain.UnifiedSource) {
	s.score(QueryTerms(query), record)
}

func (s *Scorer) score(terms []string, r *domain.UnifiedSource) {
	policy, ok := s.policies[r.ProviderType]
	if !ok {
		r.QualityScore = 0
		r.AuthorityScore = 0
		r.RelevanceScore = Relevance(terms, r)
		r.ImpactScore = float64(r.CitationCount)
		return
	}

	quality := policy.Base
	for _, rule := range policy.Rules {
		if rule.Applies != nil && rule.Applies(r) {
			quality += rule.Bonus
		}
	}

	authority := policy.Authority
	if policy.DomainAuthority {
		bonus := s.domains.Bonus(r.URL)
		quality += bonus
		authority += bonus
	}

	impact := float64(r.CitationCount)
	if policy.Impact != nil {
		impact = policy.Impact(r)
	}

	r.QualityScore = clamp(quality)
	r.AuthorityScore = clamp(authority)
	r.RelevanceScore = Relevance(terms, r)
	r.ImpactScore = max(0, impact)
}

// QueryTerms splits query into lowercase whitespace separated terms.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Relevance returns the percentage of terms that occur as substrings of the
// record's lowercase title and abstract. It is 0 when there are no terms.
func Relevance(terms []string, r *domain.UnifiedSource) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(r.Title + " " + r.Abstract)
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms)) * 100
}

func clamp(v float64) float64 {
	return min(MaxScore, max(MinScore, v))
}
