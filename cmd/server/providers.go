package main

import (
	"strings"

	"github.com/helixir/literature-search-service/internal/config"
	"github.com/helixir/literature-search-service/internal/papersources"
	"github.com/helixir/literature-search-service/internal/papersources/crossref"
	"github.com/helixir/literature-search-service/internal/papersources/europepmc"
	"github.com/helixir/literature-search-service/internal/papersources/pubmed"
	"github.com/helixir/literature-search-service/internal/papersources/semanticscholar"
	"github.com/helixir/literature-search-service/internal/papersources/websearch"
)

// buildRegistry constructs every provider adapter from configuration.
// Disabled providers are registered too so that they are listed.
func buildRegistry(cfg config.ProvidersConfig) *papersources.Registry {
	return papersources.NewRegistry(
		pubmed.New(pubmed.Config{
			BaseURL:    cfg.PubMed.BaseURL,
			APIKey:     cfg.PubMed.APIKey,
			Timeout:    cfg.PubMed.Timeout,
			RateLimit:  cfg.PubMed.RateLimit,
			BurstSize:  cfg.PubMed.BurstSize,
			MaxRetries: cfg.PubMed.MaxRetries,
			Enabled:    cfg.PubMed.Enabled,
		}),
		europepmc.New(europepmc.Config{
			BaseURL:    cfg.EuropePMC.BaseURL,
			Timeout:    cfg.EuropePMC.Timeout,
			RateLimit:  cfg.EuropePMC.RateLimit,
			BurstSize:  cfg.EuropePMC.BurstSize,
			MaxRetries: cfg.EuropePMC.MaxRetries,
			Enabled:    cfg.EuropePMC.Enabled,
		}),
		crossref.New(crossref.Config{
			BaseURL:    cfg.Crossref.BaseURL,
			Email:      cfg.Crossref.Email,
			Timeout:    cfg.Crossref.Timeout,
			RateLimit:  cfg.Crossref.RateLimit,
			BurstSize:  cfg.Crossref.BurstSize,
			MaxRetries: cfg.Crossref.MaxRetries,
			Enabled:    cfg.Crossref.Enabled,
		}),
		semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    cfg.SemanticScholar.BaseURL,
			APIKey:     cfg.SemanticScholar.APIKey,
			Timeout:    cfg.SemanticScholar.Timeout,
			RateLimit:  cfg.SemanticScholar.RateLimit,
			BurstSize:  cfg.SemanticScholar.BurstSize,
			MaxRetries: cfg.SemanticScholar.MaxRetries,
			Enabled:    cfg.SemanticScholar.Enabled,
		}, nil),
		websearch.New(websearch.Config{
			Format:        websearch.Format(strings.ToLower(cfg.WebSearch.Format)),
			BaseURL:       cfg.WebSearch.BaseURL,
			QuerySuffix:   cfg.WebSearch.QuerySuffix,
			DisableSuffix: strings.TrimSpace(cfg.WebSearch.QuerySuffix) == "",
			Timeout:       cfg.WebSearch.Timeout,
			RateLimit:     cfg.WebSearch.RateLimit,
			BurstSize:     cfg.WebSearch.BurstSize,
			MaxRetries:    cfg.WebSearch.MaxRetries,
			Enabled:       cfg.WebSearch.Enabled,
		}),
	)
}
