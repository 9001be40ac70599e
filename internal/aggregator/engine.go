// Package aggregator runs an aggregated literature search: it fans the query out
// to every requested provider, merges the settled batches, removes duplicates,
// ranks the survivors and summarizes the outcome.
package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/dedup"
	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/observability"
	"github.com/helixir/literature-search-service/internal/papersources"
	"github.com/helixir/literature-search-service/internal/ranking"
	"github.com/helixir/literature-search-service/internal/scoring"
)

// EventPublisher publishes search lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.SearchEvent) error
}

// Config configures an Engine.
type Config struct {
	Orchestrator OrchestratorConfig
	Dedup        dedup.Config
}

// Deps holds the collaborators of an Engine. Only Registry is required.
type Deps struct {
	Registry  *papersources.Registry
	Cache     *papersources.Cache
	Scorer    *scoring.Scorer
	Metrics   *observability.Metrics
	Publisher EventPublisher
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Engine executes aggregated searches. It is safe for concurrent use.
type Engine struct {
	orchestrator *Orchestrator
	dedup        *dedup.Deduplicator
	ranker       *ranking.Ranker
	publisher    EventPublisher
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(deps Deps, cfg Config) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	orch := NewOrchestrator(deps.Registry, deps.Cache, deps.Scorer, deps.Metrics, cfg.Orchestrator)
	orch.now = now

	return &Engine{
		orchestrator: orch,
		dedup:        dedup.New(cfg.Dedup),
		ranker:       ranking.NewWithClock(now),
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		logger:       deps.Logger.With().Str("component", "aggregator").Logger(),
	}
}

// SearchAllSources runs one aggregated search. It returns an error only when
// cfg is invalid; provider failures are reported inside the result.
//
// Zero limits, priority and sort strategy are defaulted, but boolean options
// are taken as given: a literal SearchConfig{Query: q} runs with
// deduplication off and abstracts dropped. Callers that want the documented
// defaults start from domain.DefaultSearchConfig and override fields.
func (e *Engine) SearchAllSources(ctx context.Context, cfg domain.SearchConfig) (*domain.SearchResult, error) {
	start := time.Now()

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		e.metrics.RecordSearchFailed(time.Since(start).Seconds())
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	searchID := uuid.New()
	sc := observability.SearchContextFromContext(ctx)
	sc.SearchID = searchID.String()
	logger := observability.WithSearchContext(e.logger, sc.SearchID, cfg.Query)
	if sc.RequestID != "" {
		logger = observability.WithRequestContext(logger, sc.RequestID)
	}
	if sc.TraceID != "" {
		logger = observability.WithTraceContext(logger, sc.TraceID, sc.SpanID)
	}
	ctx = observability.WithSearchContextFull(ctx, sc)
	ctx = logger.WithContext(ctx)

	e.metrics.RecordSearchStarted()
	logger.Info().
		Strs("providers", providerNames(cfg.PrioritizeSources)).
		Int("max_results_per_source", cfg.MaxResultsPerSource).
		Msg("search started")

	outcomes := e.orchestrator.Run(ctx, cfg)

	result := &domain.SearchResult{
		SearchID:         searchID,
		Query:            cfg.Query,
		SourceBreakdown:  make(map[domain.ProviderType]int, len(outcomes)),
		SearchStrategies: make([]string, 0, len(outcomes)+1),
	}

	var records []*domain.UnifiedSource
	for _, out := range outcomes {
		result.SourceBreakdown[out.Provider] = len(out.Records)
		result.SearchStrategies = append(result.SearchStrategies, describeOutcome(out))
		if out.Err != nil {
			if result.ProviderErrors == nil {
				result.ProviderErrors = make(map[domain.ProviderType]string)
			}
			result.ProviderErrors[out.Provider] = out.Err.Error()
			continue
		}
		records = append(records, out.Records...)
	}
	result.TotalFound = result.BreakdownTotal()

	if cfg.EnableDeduplication {
		deduped := e.dedup.Deduplicate(records)
		records = deduped.Sources
		result.DuplicatesRemoved = deduped.Removed
		result.SearchStrategies = append(result.SearchStrategies,
			fmt.Sprintf("deduplication: %d removed", deduped.Removed))
	}

	AssignUniqueIDs(records)

	ranked := e.ranker.Rank(cfg, records)
	result.Sources = ranked.Sources
	if result.Sources == nil {
		result.Sources = []*domain.UnifiedSource{}
	}
	result.QualityMetrics = ranked.Metrics

	result.Duration = time.Since(start)
	result.DurationMS = result.Duration.Milliseconds()

	e.metrics.RecordSearchCompleted(result.Duration.Seconds(), len(result.Sources), result.DuplicatesRemoved)
	logger.Info().
		Int("total_found", result.TotalFound).
		Int("records", len(result.Sources)).
		Int("duplicates_removed", result.DuplicatesRemoved).
		Int("provider_errors", len(result.ProviderErrors)).
		Dur("duration", result.Duration).
		Msg("search completed")

	e.publish(ctx, logger, result)

	return result, nil
}

func (e *Engine) publish(ctx context.Context, logger zerolog.Logger, result *domain.SearchResult) {
	if e.publisher == nil {
		return
	}

	event, err := domain.NewSearchEvent(domain.EventTypeSearchCompleted, result.SearchID, domain.NewSearchCompletedPayload(result))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build search event")
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("failed to publish search event")
	}
}

// AssignUniqueIDs rewrites repeated record IDs in place by appending -2, -3
// and so on, so that every ID in records is distinct.
func AssignUniqueIDs(records []*domain.UnifiedSource) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.ID
		for n := 2; ; n++ {
			if _, taken := seen[id]; !taken {
				break
			}
			id = r.ID + "-" + strconv.Itoa(n)
		}
		r.ID = id
		seen[id] = struct{}{}
	}
}

func describeOutcome(out ProviderOutcome) string {
	switch {
	case out.Err != nil:
		return fmt.Sprintf("%s: failed (%v)", out.Provider, out.Err)
	case out.Cached:
		return fmt.Sprintf("%s: %d records (cached)", out.Provider, len(out.Records))
	default:
		return fmt.Sprintf("%s: %d records", out.Provider, len(out.Records))
	}
}

func providerNames(pts []domain.ProviderType) []string {
	names := make([]string, len(pts))
	for i, pt := range pts {
		names[i] = string(pt)
	}
	return names
}
