// Package config provides configuration management for the literature search service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/literature-search-service/internal/domain"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "LITSEARCH"

// Web search backend formats.
const (
	WebSearchFormatSearXNG    = "searxng"
	WebSearchFormatDuckDuckGo = "duckduckgo"
)

// Config holds all configuration for the literature search service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains per-request defaults and aggregation bounds.
	Search SearchConfig `mapstructure:"search"`
	// Cache contains provider response cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Providers contains the search provider API configurations.
	Providers ProvidersConfig `mapstructure:"providers"`
	// Kafka contains Kafka publisher settings for search events.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// SearchConfig holds the defaults applied to search requests and the bounds
// of the aggregation itself.
type SearchConfig struct {
	// MaxResultsPerSource is the default per-provider record limit.
	MaxResultsPerSource int `mapstructure:"max_results_per_source"`
	// MaxTotalResults is the default size of the final result set.
	MaxTotalResults int `mapstructure:"max_total_results"`
	// IncludeAbstracts is the default for returning abstracts.
	IncludeAbstracts bool `mapstructure:"include_abstracts"`
	// EnableDeduplication is the default for cross-provider deduplication.
	EnableDeduplication bool `mapstructure:"enable_deduplication"`
	// SortBy is the default sort strategy.
	SortBy string `mapstructure:"sort_by"`
	// PrioritizeSources is the default provider order.
	PrioritizeSources []string `mapstructure:"prioritize_sources"`
	// OverallTimeout bounds the provider fan-out of one search.
	OverallTimeout time.Duration `mapstructure:"overall_timeout"`
	// TitleKeyLength is the number of normalized title runes compared by
	// deduplication. Zero or less compares whole titles.
	TitleKeyLength int `mapstructure:"title_key_length"`
}

// CacheConfig holds provider response cache settings.
type CacheConfig struct {
	// TTL is how long a provider response is reused. Zero disables the cache.
	TTL time.Duration `mapstructure:"ttl"`
}

// ProvidersConfig holds configuration for all search providers.
type ProvidersConfig struct {
	// PubMed contains NCBI E-utilities settings.
	PubMed ProviderConfig `mapstructure:"pubmed"`
	// EuropePMC contains Europe PMC REST settings.
	EuropePMC ProviderConfig `mapstructure:"europepmc"`
	// Crossref contains Crossref REST settings.
	Crossref CrossrefConfig `mapstructure:"crossref"`
	// SemanticScholar contains Semantic Scholar Graph API settings.
	SemanticScholar ProviderConfig `mapstructure:"semantic_scholar"`
	// WebSearch contains general web search backend settings.
	WebSearch WebSearchConfig `mapstructure:"web_search"`
}

// ProviderConfig holds configuration for a single provider API.
type ProviderConfig struct {
	// Enabled controls whether this provider is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. LITSEARCH_PROVIDERS_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds one provider search.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the number of HTTP retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
}

// CrossrefConfig adds the polite pool contact address.
type CrossrefConfig struct {
	ProviderConfig `mapstructure:",squash"`
	// Email is sent as mailto with every request.
	Email string `mapstructure:"email"`
}

// WebSearchConfig selects the web search backend.
type WebSearchConfig struct {
	ProviderConfig `mapstructure:",squash"`
	// Format is the backend response format (searxng, duckduckgo).
	Format string `mapstructure:"format"`
	// QuerySuffix is appended to every query.
	QuerySuffix string `mapstructure:"query_suffix"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether search events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic for search events.
	Topic string `mapstructure:"topic"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// DefaultRequest returns the search request defaults for query.
func (c *SearchConfig) DefaultRequest(query string) domain.SearchConfig {
	sources := make([]domain.ProviderType, 0, len(c.PrioritizeSources))
	for _, s := range c.PrioritizeSources {
		sources = append(sources, domain.ProviderType(strings.TrimSpace(s)))
	}

	return domain.SearchConfig{
		Query:               query,
		MaxResultsPerSource: c.MaxResultsPerSource,
		MaxTotalResults:     c.MaxTotalResults,
		IncludeAbstracts:    c.IncludeAbstracts,
		PrioritizeSources:   sources,
		EnableDeduplication: c.EnableDeduplication,
		SortBy:              domain.SortStrategy(c.SortBy),
	}
}

// ProviderTimeouts returns the configured per-provider search timeouts.
func (c *ProvidersConfig) ProviderTimeouts() map[domain.ProviderType]time.Duration {
	return map[domain.ProviderType]time.Duration{
		domain.ProviderTypePubMed:          c.PubMed.Timeout,
		domain.ProviderTypeEuropePMC:       c.EuropePMC.Timeout,
		domain.ProviderTypeCrossref:        c.Crossref.Timeout,
		domain.ProviderTypeSemanticScholar: c.SemanticScholar.Timeout,
		domain.ProviderTypeWebSearch:       c.WebSearch.Timeout,
	}
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/literature-search-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment lists arrive as a single comma separated string.
	cfg.Search.PrioritizeSources = splitList(cfg.Search.PrioritizeSources)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Providers.PubMed.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_PUBMED_API_KEY")
	cfg.Providers.EuropePMC.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_EUROPEPMC_API_KEY")
	cfg.Providers.Crossref.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_CROSSREF_API_KEY")
	cfg.Providers.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Providers.WebSearch.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_WEB_SEARCH_API_KEY")
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "literature_search")

	// Search defaults
	v.SetDefault("search.max_results_per_source", domain.DefaultMaxResultsPerSource)
	v.SetDefault("search.max_total_results", domain.DefaultMaxTotalResults)
	v.SetDefault("search.include_abstracts", true)
	v.SetDefault("search.enable_deduplication", true)
	v.SetDefault("search.sort_by", string(domain.SortByRelevance))
	v.SetDefault("search.prioritize_sources", providerNames(domain.CanonicalProviders()))
	v.SetDefault("search.overall_timeout", "15s")
	v.SetDefault("search.title_key_length", 50)

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Provider defaults - PubMed
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("providers.pubmed.enabled", true)
	v.SetDefault("providers.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("providers.pubmed.timeout", "10s")
	v.SetDefault("providers.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("providers.pubmed.burst_size", 3)
	v.SetDefault("providers.pubmed.max_retries", 0)

	// Provider defaults - Europe PMC
	v.SetDefault("providers.europepmc.enabled", true)
	v.SetDefault("providers.europepmc.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("providers.europepmc.timeout", "10s")
	v.SetDefault("providers.europepmc.rate_limit", 5.0)
	v.SetDefault("providers.europepmc.burst_size", 5)
	v.SetDefault("providers.europepmc.max_retries", 0)

	// Provider defaults - Crossref
	v.SetDefault("providers.crossref.enabled", true)
	v.SetDefault("providers.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("providers.crossref.timeout", "10s")
	v.SetDefault("providers.crossref.rate_limit", 5.0)
	v.SetDefault("providers.crossref.burst_size", 5)
	v.SetDefault("providers.crossref.max_retries", 0)
	v.SetDefault("providers.crossref.email", "")

	// Provider defaults - Semantic Scholar
	v.SetDefault("providers.semantic_scholar.enabled", true)
	v.SetDefault("providers.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("providers.semantic_scholar.timeout", "10s")
	v.SetDefault("providers.semantic_scholar.rate_limit", 1.0) // unauthenticated shared pool
	v.SetDefault("providers.semantic_scholar.burst_size", 1)
	v.SetDefault("providers.semantic_scholar.max_retries", 0)

	// Provider defaults - web search (disabled by default, requires a backend)
	v.SetDefault("providers.web_search.enabled", false)
	v.SetDefault("providers.web_search.base_url", "")
	v.SetDefault("providers.web_search.timeout", "10s")
	v.SetDefault("providers.web_search.rate_limit", 1.0)
	v.SetDefault("providers.web_search.burst_size", 1)
	v.SetDefault("providers.web_search.max_retries", 0)
	v.SetDefault("providers.web_search.format", WebSearchFormatSearXNG)
	v.SetDefault("providers.web_search.query_suffix", "medical research")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.literature_search")
	v.SetDefault("kafka.write_timeout", "5s")
}

func providerNames(pts []domain.ProviderType) []string {
	out := make([]string, len(pts))
	for i, pt := range pts {
		out[i] = string(pt)
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search defaults against the request bounds.
	if c.Search.OverallTimeout <= 0 {
		return fmt.Errorf("search overall_timeout must be positive")
	}
	if err := c.Search.DefaultRequest("config").WithDefaults().Validate(); err != nil {
		return fmt.Errorf("invalid search defaults: %w", err)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}

	// Validate providers
	providers := map[string]ProviderConfig{
		"pubmed":           c.Providers.PubMed,
		"europepmc":        c.Providers.EuropePMC,
		"crossref":         c.Providers.Crossref.ProviderConfig,
		"semantic_scholar": c.Providers.SemanticScholar,
		"web_search":       c.Providers.WebSearch.ProviderConfig,
	}
	for name, p := range providers {
		if p.Timeout < 0 {
			return fmt.Errorf("provider %s timeout must not be negative", name)
		}
		if p.RateLimit < 0 {
			return fmt.Errorf("provider %s rate_limit must not be negative", name)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("provider %s max_retries must not be negative", name)
		}
	}
	switch strings.ToLower(c.Providers.WebSearch.Format) {
	case WebSearchFormatSearXNG, WebSearchFormatDuckDuckGo:
	default:
		return fmt.Errorf("invalid web search format: %s", c.Providers.WebSearch.Format)
	}

	// Validate Kafka config
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	return nil
}
