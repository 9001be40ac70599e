package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Search configuration defaults and bounds.
const (
	DefaultMaxResultsPerSource = 10
	MaxMaxResultsPerSource     = 100
	DefaultMaxTotalResults     = 50
	MaxMaxTotalResults         = 500

	// HighQualityThreshold is the quality score at or above which a record
	// counts toward QualityMetrics.HighQualityCount.
	HighQualityThreshold = 80.0
)

// SearchConfig is the per-invocation configuration of one aggregated search.
type SearchConfig struct {
	Query               string         `json:"query" validate:"required,max=1000"`
	MaxResultsPerSource int            `json:"max_results_per_source" validate:"min=1,max=100"`
	MaxTotalResults     int            `json:"max_total_results" validate:"min=1,max=500"`
	IncludeAbstracts    bool           `json:"include_abstracts"`
	OnlyOpenAccess      bool           `json:"only_open_access"`
	OnlyRecent          bool           `json:"only_recent"`
	MinQualityScore     float64        `json:"min_quality_score" validate:"min=0,max=100"`
	PrioritizeSources   []ProviderType `json:"prioritize_sources" validate:"min=1,unique,dive,oneof=pubmed europepmc crossref semantic_scholar web_search"`
	EnableDeduplication bool           `json:"enable_deduplication"`
	SortBy              SortStrategy   `json:"sort_by" validate:"oneof=relevance quality citations date"`
}

// DefaultSearchConfig returns a SearchConfig populated with the default values.
func DefaultSearchConfig(query string) SearchConfig {
	return SearchConfig{
		Query:               query,
		MaxResultsPerSource: DefaultMaxResultsPerSource,
		MaxTotalResults:     DefaultMaxTotalResults,
		IncludeAbstracts:    true,
		PrioritizeSources:   CanonicalProviders(),
		EnableDeduplication: true,
		SortBy:              SortByRelevance,
	}
}

// WithDefaults returns a copy of the config with unset limits, priority and
// sort strategy replaced by their defaults. Explicit out-of-range values are
// left in place so that Validate rejects them. Boolean options are never
// changed, since false cannot be told apart from unset; use
// DefaultSearchConfig to get deduplication and abstracts enabled.
func (c SearchConfig) WithDefaults() SearchConfig {
	if c.MaxResultsPerSource == 0 {
		c.MaxResultsPerSource = DefaultMaxResultsPerSource
	}
	if c.MaxTotalResults == 0 {
		c.MaxTotalResults = DefaultMaxTotalResults
	}
	if len(c.PrioritizeSources) == 0 {
		c.PrioritizeSources = CanonicalProviders()
	} else {
		c.PrioritizeSources = append([]ProviderType(nil), c.PrioritizeSources...)
	}
	if c.SortBy == "" {
		c.SortBy = SortByRelevance
	}
	return c
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config and returns a *ValidationError describing the
// first invalid field.
func (c SearchConfig) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return NewValidationError("query", "must not be empty")
	}

	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fieldName(fe), describeFieldError(fe))
		}
		return NewValidationError("config", err.Error())
	}
	return nil
}

// PriorityIndex returns the position of the provider in PrioritizeSources,
// or len(PrioritizeSources) when it is absent.
func (c SearchConfig) PriorityIndex(p ProviderType) int {
	for i, candidate := range c.PrioritizeSources {
		if candidate == p {
			return i
		}
	}
	return len(c.PrioritizeSources)
}

var jsonFieldNames = map[string]string{
	"Query":               "query",
	"MaxResultsPerSource": "max_results_per_source",
	"MaxTotalResults":     "max_total_results",
	"MinQualityScore":     "min_quality_score",
	"PrioritizeSources":   "prioritize_sources",
	"SortBy":              "sort_by",
}

func fieldName(fe validator.FieldError) string {
	if name, ok := jsonFieldNames[fe.StructField()]; ok {
		return name
	}
	// Slice elements report as PrioritizeSources[2].
	if strings.HasPrefix(fe.StructNamespace(), "SearchConfig.PrioritizeSources[") {
		return "prioritize_sources"
	}
	return fe.Field()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "oneof":
		return fmt.Sprintf("unsupported value %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// QualityMetrics summarizes the final, truncated result set.
type QualityMetrics struct {
	AverageQuality     float64 `json:"average_quality"`
	HighQualityCount   int     `json:"high_quality_count"`
	OpenAccessCount    int     `json:"open_access_count"`
	WithAbstractCount  int     `json:"with_abstract_count"`
	RecentPublications int     `json:"recent_publications"`
	AverageCitations   float64 `json:"average_citations"`
}

// SearchResult is the outcome of one aggregated search.
type SearchResult struct {
	SearchID          uuid.UUID               `json:"search_id"`
	Query             string                  `json:"query"`
	Sources           []*UnifiedSource        `json:"sources"`
	TotalFound        int                     `json:"total_found"`
	SourceBreakdown   map[ProviderType]int    `json:"source_breakdown"`
	QualityMetrics    QualityMetrics          `json:"quality_metrics"`
	DuplicatesRemoved int                     `json:"duplicates_removed"`
	SearchStrategies  []string                `json:"search_strategies"`
	ProviderErrors    map[ProviderType]string `json:"provider_errors,omitempty"`
	Duration          time.Duration           `json:"-"`
	DurationMS        int64                   `json:"duration_ms"`
}

// BreakdownTotal returns the sum of the per-provider counts.
func (r *SearchResult) BreakdownTotal() int {
	total := 0
	for _, n := range r.SourceBreakdown {
		total += n
	}
	return total
}
