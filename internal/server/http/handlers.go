package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/helixir/literature-search-service/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// searchRequest is the JSON request body for an aggregated search. Omitted
// fields keep the server defaults.
type searchRequest struct {
	Query               string   `json:"query"`
	MaxResultsPerSource *int     `json:"max_results_per_source,omitempty"`
	MaxTotalResults     *int     `json:"max_total_results,omitempty"`
	IncludeAbstracts    *bool    `json:"include_abstracts,omitempty"`
	OnlyOpenAccess      *bool    `json:"only_open_access,omitempty"`
	OnlyRecent          *bool    `json:"only_recent,omitempty"`
	MinQualityScore     *float64 `json:"min_quality_score,omitempty"`
	PrioritizeSources   []string `json:"prioritize_sources,omitempty"`
	EnableDeduplication *bool    `json:"enable_deduplication,omitempty"`
	SortBy              *string  `json:"sort_by,omitempty"`
}

// toConfig overlays the request on defaults.
func (req searchRequest) toConfig(defaults func(string) domain.SearchConfig) domain.SearchConfig {
	cfg := defaults(req.Query)
	if req.MaxResultsPerSource != nil {
		cfg.MaxResultsPerSource = *req.MaxResultsPerSource
	}
	if req.MaxTotalResults != nil {
		cfg.MaxTotalResults = *req.MaxTotalResults
	}
	if req.IncludeAbstracts != nil {
		cfg.IncludeAbstracts = *req.IncludeAbstracts
	}
	if req.OnlyOpenAccess != nil {
		cfg.OnlyOpenAccess = *req.OnlyOpenAccess
	}
	if req.OnlyRecent != nil {
		cfg.OnlyRecent = *req.OnlyRecent
	}
	if req.MinQualityScore != nil {
		cfg.MinQualityScore = *req.MinQualityScore
	}
	if len(req.PrioritizeSources) > 0 {
		sources := make([]domain.ProviderType, len(req.PrioritizeSources))
		for i, p := range req.PrioritizeSources {
			sources[i] = domain.ProviderType(p)
		}
		cfg.PrioritizeSources = sources
	}
	if req.EnableDeduplication != nil {
		cfg.EnableDeduplication = *req.EnableDeduplication
	}
	if req.SortBy != nil {
		cfg.SortBy = domain.SortStrategy(*req.SortBy)
	}
	return cfg
}

// search handles POST /api/v1/search.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	result, err := s.searcher.SearchAllSources(r.Context(), req.toConfig(s.defaults))
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) {
			s.logger.Error().Err(err).Msg("search failed")
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainResultToResponse(result))
}

// listProviders handles GET /api/v1/providers.
func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	all := s.providers.All()
	resp := listProvidersResponse{Providers: make([]providerResponse, 0, len(all))}
	for _, p := range all {
		resp.Providers = append(resp.Providers, providerResponse{
			Type:    string(p.Type()),
			Name:    p.Name(),
			Enabled: p.IsEnabled(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
