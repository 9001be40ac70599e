// Package ranking filters, orders and truncates aggregated records and
// computes summary quality metrics over the final set.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/helixir/literature-search-service/internal/domain"
)

// Weights of the combined relevance sort.
const (
	RelevanceWeight = 0.4
	QualityWeight   = 0.3
	AuthorityWeight = 0.3
)

// Result is the ranked, truncated record set with its metrics.
type Result struct {
	Sources []*domain.UnifiedSource
	Metrics domain.QualityMetrics
}

// Ranker applies the request filters and sort strategy. It holds no state and
// is safe for concurrent use.
type Ranker struct {
	now func() time.Time
}

// New creates a Ranker that uses the wall clock for the recent window.
func New() *Ranker {
	return &Ranker{now: time.Now}
}

// NewWithClock creates a Ranker with an injected clock.
func NewWithClock(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// Rank filters records by cfg, sorts them by cfg.SortBy, truncates to
// cfg.MaxTotalResults and computes metrics over the truncated set. When
// cfg.IncludeAbstracts is false, abstracts are cleared after the metrics
// are computed.
func (r *Ranker) Rank(cfg domain.SearchConfig, records []*domain.UnifiedSource) Result {
	cutoff := domain.RecentCutoff(r.now())

	filtered := Filter(cfg, records, cutoff)
	Sort(cfg, filtered)

	if cfg.MaxTotalResults > 0 && len(filtered) > cfg.MaxTotalResults {
		filtered = filtered[:cfg.MaxTotalResults]
	}

	metrics := ComputeMetrics(filtered, cutoff)

	if !cfg.IncludeAbstracts {
		for _, s := range filtered {
			s.Abstract = ""
		}
	}

	return Result{Sources: filtered, Metrics: metrics}
}

// Filter applies, in order, the minimum quality, open access and recent
// filters. Under OnlyRecent a record with an unknown date is dropped.
func Filter(cfg domain.SearchConfig, records []*domain.UnifiedSource, cutoff time.Time) []*domain.UnifiedSource {
	out := make([]*domain.UnifiedSource, 0, len(records))
	for _, s := range records {
		if s == nil {
			continue
		}
		if cfg.MinQualityScore > 0 && s.QualityScore < cfg.MinQualityScore {
			continue
		}
		if cfg.OnlyOpenAccess && !s.IsOpenAccess {
			continue
		}
		if cfg.OnlyRecent && !s.PublishedSince(cutoff) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Sort orders records in place by cfg.SortBy, descending. Ties are broken by
// the provider's position in cfg.PrioritizeSources, then by input order.
func Sort(cfg domain.SearchConfig, records []*domain.UnifiedSource) {
	key := sortKey(cfg.SortBy)
	slices.SortStableFunc(records, func(a, b *domain.UnifiedSource) int {
		if c := key(b, a); c != 0 {
			return c
		}
		return cmp.Compare(cfg.PriorityIndex(a.ProviderType), cfg.PriorityIndex(b.ProviderType))
	})
}

// sortKey returns an ascending comparison for the strategy.
func sortKey(strategy domain.SortStrategy) func(a, b *domain.UnifiedSource) int {
	switch strategy {
	case domain.SortByQuality:
		return func(a, b *domain.UnifiedSource) int { return cmp.Compare(a.QualityScore, b.QualityScore) }
	case domain.SortByCitations:
		return func(a, b *domain.UnifiedSource) int { return cmp.Compare(a.CitationCount, b.CitationCount) }
	case domain.SortByDate:
		return func(a, b *domain.UnifiedSource) int { return a.PublicationDate.Compare(b.PublicationDate) }
	default:
		return func(a, b *domain.UnifiedSource) int { return cmp.Compare(CombinedScore(a), CombinedScore(b)) }
	}
}

// CombinedScore is the weighted relevance sort key.
func CombinedScore(s *domain.UnifiedSource) float64 {
	return RelevanceWeight*s.RelevanceScore + QualityWeight*s.QualityScore + AuthorityWeight*s.AuthorityScore
}

// ComputeMetrics summarizes records. Means are 0 for an empty set.
func ComputeMetrics(records []*domain.UnifiedSource, cutoff time.Time) domain.QualityMetrics {
	var m domain.QualityMetrics
	if len(records) == 0 {
		return m
	}

	var qualitySum, citationSum float64
	for _, s := range records {
		qualitySum += s.QualityScore
		citationSum += float64(s.CitationCount)
		if s.QualityScore >= domain.HighQualityThreshold {
			m.HighQualityCount++
		}
		if s.IsOpenAccess {
			m.OpenAccessCount++
		}
		if s.HasAbstract() {
			m.WithAbstractCount++
		}
		if s.PublishedSince(cutoff) {
			m.RecentPublications++
		}
	}

	n := float64(len(records))
	m.AverageQuality = qualitySum / n
	m.AverageCitations = citationSum / n
	return m
}
