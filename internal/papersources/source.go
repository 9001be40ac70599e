// Package papersources provides interfaces and types for bibliographic search providers.
//
// This package defines the foundational abstractions that all provider adapters
// must follow. Each external index (PubMed, Europe PMC, Crossref, Semantic Scholar,
// a web search backend) implements the Provider interface, allowing the aggregator
// to query all of them concurrently with a unified API.
//
// Example usage:
//
//	provider := pubmed.New(cfg)
//	q := papersources.Query{
//		Text:             "age-related macular degeneration treatment",
//		Limit:            10,
//		IncludeAbstracts: true,
//	}
//	records, err := provider.Search(ctx, q)
package papersources

import (
	"context"
	"net/url"
	"time"

	"github.com/helixir/literature-search-service/internal/domain"
)

// Query is the provider-neutral form of one search request.
type Query struct {
	// Text is the free text query. Each provider translates it into its own syntax.
	Text string

	// Limit caps the number of records requested from the provider.
	Limit int

	// IncludeAbstracts asks the provider to prefer records that carry an abstract.
	IncludeAbstracts bool

	// OpenAccessOnly restricts the provider to open access records where it supports it.
	OpenAccessOnly bool

	// RecentOnly restricts the provider to records published within the recent window.
	RecentOnly bool

	// Now anchors the recent window. A zero value means time.Now().
	Now time.Time
}

// QueryFromConfig maps a search config onto a provider query.
func QueryFromConfig(cfg domain.SearchConfig, now time.Time) Query {
	return Query{
		Text:             cfg.Query,
		Limit:            cfg.MaxResultsPerSource,
		IncludeAbstracts: cfg.IncludeAbstracts,
		OpenAccessOnly:   cfg.OnlyOpenAccess,
		RecentOnly:       cfg.OnlyRecent,
		Now:              now,
	}
}

// RecentFrom returns the first day of the recent window for this query.
func (q Query) RecentFrom() time.Time {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	return domain.RecentCutoff(now.UTC())
}

// Until returns the end of the recent window, which is the query's Now.
func (q Query) Until() time.Time {
	if q.Now.IsZero() {
		return time.Now().UTC()
	}
	return q.Now.UTC()
}

// Provider defines the interface that all search provider adapters must implement.
type Provider interface {
	// Search queries the provider and returns unified records.
	// The context should be used for cancellation and deadline propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Skip individual records that cannot be parsed
	//   - Wrap errors with provider context
	Search(ctx context.Context, q Query) ([]*domain.UnifiedSource, error)

	// RequestParams returns the fully resolved request parameters the provider
	// would send for q. It identifies the request for caching.
	RequestParams(q Query) url.Values

	// Type returns the type identifier for this provider.
	Type() domain.ProviderType

	// Name returns a human-readable name for logging and display.
	Name() string

	// IsEnabled returns whether this provider is available for searches.
	IsEnabled() bool
}
