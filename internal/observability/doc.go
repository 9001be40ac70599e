// Package observability provides logging, metrics, and context support for
// the literature search service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, providers, and the provider cache
//   - Context helpers for propagating request and search identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("search_id", id).Msg("search completed")
//
// Add search context to logger:
//
//	logger = observability.WithSearchContext(logger, searchID, query)
//
// Provider adapters log through zerolog.Ctx, so attach the logger to the
// context before calling them:
//
//	ctx = logger.WithContext(ctx)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("literature_search")
//
// Record metrics:
//
//	metrics.RecordSearchStarted()
//	metrics.RecordProviderResult("pubmed", observability.OutcomeSuccess, 10, 0.8)
//	metrics.RecordCacheHit("crossref")
//
// A nil *Metrics is valid and records nothing.
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - search_id: Aggregated search identifier
//   - query: User's search query
//   - provider: Provider type (pubmed, europepmc, crossref, semantic_scholar, web_search)
//   - records: Number of records returned
//   - duration: Elapsed time
//   - trace_id: Distributed trace identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
