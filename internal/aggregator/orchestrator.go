package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/observability"
	"github.com/helixir/literature-search-service/internal/papersources"
	"github.com/helixir/literature-search-service/internal/scoring"
)

// Orchestrator timeout defaults.
const (
	DefaultOverallTimeout  = 15 * time.Second
	DefaultProviderTimeout = 10 * time.Second
)

// OrchestratorConfig bounds the fan-out of one search.
type OrchestratorConfig struct {
	// OverallTimeout bounds the whole fan-out. Zero means DefaultOverallTimeout.
	OverallTimeout time.Duration

	// ProviderTimeout bounds each provider task. Zero means DefaultProviderTimeout.
	ProviderTimeout time.Duration

	// ProviderTimeouts overrides ProviderTimeout for individual providers.
	ProviderTimeouts map[domain.ProviderType]time.Duration
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = DefaultOverallTimeout
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = DefaultProviderTimeout
	}
}

func (c OrchestratorConfig) timeoutFor(pt domain.ProviderType) time.Duration {
	if d, ok := c.ProviderTimeouts[pt]; ok && d > 0 {
		return d
	}
	return c.ProviderTimeout
}

// ProviderOutcome is the settled result of one provider task.
type ProviderOutcome struct {
	Provider domain.ProviderType
	Records  []*domain.UnifiedSource
	Err      error
	Cached   bool
	Duration time.Duration
}

// Outcome returns the metrics label of the outcome.
func (o ProviderOutcome) Outcome() string {
	switch {
	case o.Err == nil && o.Cached:
		return observability.OutcomeCacheHit
	case o.Err == nil:
		return observability.OutcomeSuccess
	case errors.Is(o.Err, domain.ErrProviderDisabled):
		return observability.OutcomeSkipped
	case errors.Is(o.Err, domain.ErrProviderTimeout):
		return observability.OutcomeTimeout
	default:
		return observability.OutcomeFailure
	}
}

// Orchestrator runs one search task per requested provider and joins them
// once every task has settled. A failing provider never aborts the others.
type Orchestrator struct {
	registry *papersources.Registry
	cache    *papersources.Cache
	scorer   *scoring.Scorer
	metrics  *observability.Metrics
	config   OrchestratorConfig
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. A nil cache disables caching, a
// nil scorer uses the default policy table and nil metrics record nothing.
func NewOrchestrator(
	registry *papersources.Registry,
	cache *papersources.Cache,
	scorer *scoring.Scorer,
	metrics *observability.Metrics,
	cfg OrchestratorConfig,
) *Orchestrator {
	cfg.applyDefaults()
	if registry == nil {
		registry = papersources.NewRegistry()
	}
	if scorer == nil {
		scorer = scoring.NewDefault()
	}
	return &Orchestrator{
		registry: registry,
		cache:    cache,
		scorer:   scorer,
		metrics:  metrics,
		config:   cfg,
		now:      time.Now,
	}
}

// Run queries every provider in cfg.PrioritizeSources concurrently and returns
// one outcome per provider, in priority order.
func (o *Orchestrator) Run(ctx context.Context, cfg domain.SearchConfig) []ProviderOutcome {
	ctx, cancel := context.WithTimeout(ctx, o.config.OverallTimeout)
	defer cancel()

	q := papersources.QueryFromConfig(cfg, o.now())
	outcomes := make([]ProviderOutcome, len(cfg.PrioritizeSources))

	var wg sync.WaitGroup
	for i, pt := range cfg.PrioritizeSources {
		wg.Add(1)
		go func(i int, pt domain.ProviderType) {
			defer wg.Done()
			outcomes[i] = o.runProvider(ctx, pt, q)
		}(i, pt)
	}
	wg.Wait()

	for _, out := range outcomes {
		o.metrics.RecordProviderResult(string(out.Provider), out.Outcome(), len(out.Records), out.Duration.Seconds())
		if errors.Is(out.Err, domain.ErrRateLimited) {
			o.metrics.RecordProviderRateLimited(string(out.Provider))
		}
	}

	return outcomes
}

type taskResult struct {
	records []*domain.UnifiedSource
	err     error
}

func (o *Orchestrator) runProvider(ctx context.Context, pt domain.ProviderType, q papersources.Query) ProviderOutcome {
	start := time.Now()
	logger := observability.WithProviderContext(*zerolog.Ctx(ctx), string(pt))
	out := ProviderOutcome{Provider: pt}

	provider := o.registry.Get(pt)
	if provider == nil || !provider.IsEnabled() {
		out.Err = fmt.Errorf("%s: %w", pt, domain.ErrProviderDisabled)
		out.Duration = time.Since(start)
		logger.Warn().Err(out.Err).Msg("provider unavailable")
		return out
	}

	key := papersources.CacheKey(provider, q)
	if o.cache.Enabled() {
		if records, ok := o.cache.Get(key); ok {
			o.metrics.RecordCacheHit(string(pt))
			out.Records = records
			out.Cached = true
			out.Duration = time.Since(start)
			logger.Debug().Int("records", len(records)).Msg("served from cache")
			return out
		}
		o.metrics.RecordCacheMiss(string(pt))
	}

	records, err := o.search(ctx, provider, q)
	out.Duration = time.Since(start)
	if err != nil {
		out.Err = &domain.ProviderError{Provider: pt, Err: err}
		logger.Warn().Err(err).Dur("duration", out.Duration).Msg("provider search failed")
		return out
	}

	o.scorer.ScoreAll(q.Text, records)
	o.cache.Set(key, records)

	out.Records = records
	logger.Debug().Int("records", len(records)).Dur("duration", out.Duration).Msg("provider search completed")
	return out
}

// search runs the provider under its own deadline. The provider call runs in
// a separate goroutine so a provider that ignores cancellation cannot hold
// the join past the deadline.
func (o *Orchestrator) search(ctx context.Context, provider papersources.Provider, q papersources.Query) ([]*domain.UnifiedSource, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.timeoutFor(provider.Type()))
	defer cancel()

	done := make(chan taskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskResult{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		records, err := provider.Search(ctx, q)
		done <- taskResult{records: records, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderTimeout, res.err)
		}
		return compact(res.records), res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrProviderTimeout
		}
		return nil, ctx.Err()
	}
}

func compact(records []*domain.UnifiedSource) []*domain.UnifiedSource {
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
