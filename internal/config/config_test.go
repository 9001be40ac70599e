package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-search-service/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "literature_search", cfg.Metrics.Namespace)

	// Search defaults
	assert.Equal(t, 10, cfg.Search.MaxResultsPerSource)
	assert.Equal(t, 50, cfg.Search.MaxTotalResults)
	assert.True(t, cfg.Search.IncludeAbstracts)
	assert.True(t, cfg.Search.EnableDeduplication)
	assert.Equal(t, "relevance", cfg.Search.SortBy)
	assert.Equal(t, []string{"pubmed", "europepmc", "crossref", "semantic_scholar", "web_search"}, cfg.Search.PrioritizeSources)
	assert.Equal(t, 15*time.Second, cfg.Search.OverallTimeout)
	assert.Equal(t, 50, cfg.Search.TitleKeyLength)

	// Cache defaults
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)

	// Provider defaults
	assert.True(t, cfg.Providers.PubMed.Enabled)
	assert.True(t, cfg.Providers.EuropePMC.Enabled)
	assert.True(t, cfg.Providers.Crossref.Enabled)
	assert.True(t, cfg.Providers.SemanticScholar.Enabled)
	assert.False(t, cfg.Providers.WebSearch.Enabled) // Requires a backend
	assert.Equal(t, 10*time.Second, cfg.Providers.PubMed.Timeout)
	assert.Equal(t, 3.0, cfg.Providers.PubMed.RateLimit)
	assert.Equal(t, "https://api.crossref.org", cfg.Providers.Crossref.BaseURL)
	assert.Equal(t, WebSearchFormatSearXNG, cfg.Providers.WebSearch.Format)
	assert.Equal(t, "medical research", cfg.Providers.WebSearch.QuerySuffix)

	// Kafka defaults
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "events.literature_search", cfg.Kafka.Topic)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables with LITSEARCH prefix
	t.Setenv("LITSEARCH_SERVER_HTTP_PORT", "8888")
	t.Setenv("LITSEARCH_LOGGING_LEVEL", "debug")
	t.Setenv("LITSEARCH_SEARCH_MAX_TOTAL_RESULTS", "25")
	t.Setenv("LITSEARCH_SEARCH_SORT_BY", "citations")
	t.Setenv("LITSEARCH_SEARCH_PRIORITIZE_SOURCES", "crossref,pubmed")
	t.Setenv("LITSEARCH_SEARCH_TITLE_KEY_LENGTH", "0")
	t.Setenv("LITSEARCH_CACHE_TTL", "10m")
	t.Setenv("LITSEARCH_PROVIDERS_CROSSREF_EMAIL", "team@example.org")
	t.Setenv("LITSEARCH_PROVIDERS_WEB_SEARCH_ENABLED", "true")
	t.Setenv("LITSEARCH_PROVIDERS_WEB_SEARCH_FORMAT", "duckduckgo")
	t.Setenv("LITSEARCH_PROVIDERS_EUROPEPMC_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 25, cfg.Search.MaxTotalResults)
	assert.Equal(t, "citations", cfg.Search.SortBy)
	assert.Equal(t, []string{"crossref", "pubmed"}, cfg.Search.PrioritizeSources)
	assert.Equal(t, 0, cfg.Search.TitleKeyLength)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "team@example.org", cfg.Providers.Crossref.Email)
	assert.True(t, cfg.Providers.WebSearch.Enabled)
	assert.Equal(t, WebSearchFormatDuckDuckGo, cfg.Providers.WebSearch.Format)
	assert.Equal(t, 3*time.Second, cfg.Providers.EuropePMC.Timeout)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("LITSEARCH_SEARCH_SORT_BY", "popularity")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid search defaults")
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("LITSEARCH_PROVIDERS_PUBMED_API_KEY", "ncbi-key")
	t.Setenv("LITSEARCH_PROVIDERS_SEMANTIC_SCHOLAR_API_KEY", "s2-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ncbi-key", cfg.Providers.PubMed.APIKey)
	assert.Equal(t, "s2-key", cfg.Providers.SemanticScholar.APIKey)
}

func TestLoad_APIKeysEmptyByDefault(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Providers.PubMed.APIKey)
	assert.Empty(t, cfg.Providers.EuropePMC.APIKey)
	assert.Empty(t, cfg.Providers.Crossref.APIKey)
	assert.Empty(t, cfg.Providers.SemanticScholar.APIKey)
	assert.Empty(t, cfg.Providers.WebSearch.APIKey)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port negative",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -1
			},
			expectedErr: "invalid metrics port: -1",
		},
		{
			name: "metrics port shared with HTTP",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = c.Server.HTTPPort
			},
			expectedErr: "metrics port must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "INFO"}
	for _, level := range validLevels {
		t.Run("valid_"+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Level = level
			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "verbose"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestValidate_Search(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "non-positive overall timeout",
			modifyFunc:  func(c *Config) { c.Search.OverallTimeout = 0 },
			expectedErr: "overall_timeout",
		},
		{
			name:        "max total results above bound",
			modifyFunc:  func(c *Config) { c.Search.MaxTotalResults = 501 },
			expectedErr: "max_total_results",
		},
		{
			name:        "max results per source above bound",
			modifyFunc:  func(c *Config) { c.Search.MaxResultsPerSource = 101 },
			expectedErr: "max_results_per_source",
		},
		{
			name:        "unknown provider",
			modifyFunc:  func(c *Config) { c.Search.PrioritizeSources = []string{"pubmed", "scopus"} },
			expectedErr: "prioritize_sources",
		},
		{
			name:        "negative cache ttl",
			modifyFunc:  func(c *Config) { c.Cache.TTL = -time.Second },
			expectedErr: "cache ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}

	t.Run("zero cache ttl disables the cache", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache.TTL = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_Providers(t *testing.T) {
	t.Run("negative timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.Crossref.Timeout = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider crossref timeout")
	})

	t.Run("negative retries", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.PubMed.MaxRetries = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider pubmed max_retries")
	})

	t.Run("unknown web search format", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.WebSearch.Format = "bing"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid web search format")
	})
}

func TestValidate_Kafka(t *testing.T) {
	t.Run("brokers required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Kafka = KafkaConfig{Enabled: true, Topic: "events.literature_search"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kafka brokers")
	})

	t.Run("topic required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kafka topic")
	})

	t.Run("disabled kafka is not checked", func(t *testing.T) {
		cfg := validConfig()
		cfg.Kafka = KafkaConfig{}
		assert.NoError(t, cfg.Validate())
	})
}

func TestSearchConfig_DefaultRequest(t *testing.T) {
	cfg := validConfig()
	cfg.Search.PrioritizeSources = []string{"europepmc", " pubmed "}

	req := cfg.Search.DefaultRequest("retinal detachment")
	assert.Equal(t, "retinal detachment", req.Query)
	assert.Equal(t, 10, req.MaxResultsPerSource)
	assert.Equal(t, 50, req.MaxTotalResults)
	assert.True(t, req.IncludeAbstracts)
	assert.True(t, req.EnableDeduplication)
	assert.Equal(t, domain.SortByRelevance, req.SortBy)
	assert.Equal(t, []domain.ProviderType{domain.ProviderTypeEuropePMC, domain.ProviderTypePubMed}, req.PrioritizeSources)
	assert.NoError(t, req.Validate())
}

func TestProvidersConfig_ProviderTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Providers.WebSearch.Timeout = 4 * time.Second

	timeouts := cfg.Providers.ProviderTimeouts()
	assert.Len(t, timeouts, 5)
	assert.Equal(t, 10*time.Second, timeouts[domain.ProviderTypePubMed])
	assert.Equal(t, 4*time.Second, timeouts[domain.ProviderTypeWebSearch])
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "", "c"}))
	assert.Nil(t, splitList(nil))
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// clearEnvVars unsets every LITSEARCH_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	provider := ProviderConfig{Enabled: true, Timeout: 10 * time.Second, RateLimit: 1}
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Search: SearchConfig{
			MaxResultsPerSource: 10,
			MaxTotalResults:     50,
			IncludeAbstracts:    true,
			EnableDeduplication: true,
			SortBy:              "relevance",
			PrioritizeSources:   []string{"pubmed", "europepmc", "crossref", "semantic_scholar", "web_search"},
			OverallTimeout:      15 * time.Second,
			TitleKeyLength:      50,
		},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Providers: ProvidersConfig{
			PubMed:          provider,
			EuropePMC:       provider,
			Crossref:        CrossrefConfig{ProviderConfig: provider},
			SemanticScholar: provider,
			WebSearch:       WebSearchConfig{ProviderConfig: provider, Format: WebSearchFormatSearXNG},
		},
	}
}
