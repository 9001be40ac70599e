package papersources

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-search-service/internal/domain"
)

// mockProvider is a mock implementation of Provider for testing.
type mockProvider struct {
	providerType domain.ProviderType
	name         string
	enabled      bool

	// searchFunc allows customizing search behavior in tests
	searchFunc func(ctx context.Context, q Query) ([]*domain.UnifiedSource, error)

	searchCalls atomic.Int32
}

func newMockProvider(pt domain.ProviderType, enabled bool) *mockProvider {
	return &mockProvider{
		providerType: pt,
		name:         "Mock " + string(pt),
		enabled:      enabled,
	}
}

func (m *mockProvider) Search(ctx context.Context, q Query) ([]*domain.UnifiedSource, error) {
	m.searchCalls.Add(1)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, q)
	}
	return []*domain.UnifiedSource{}, nil
}

func (m *mockProvider) RequestParams(q Query) url.Values {
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

func (m *mockProvider) Type() domain.ProviderType { return m.providerType }
func (m *mockProvider) Name() string              { return m.name }
func (m *mockProvider) IsEnabled() bool           { return m.enabled }

func TestNewRegistry(t *testing.T) {
	t.Run("creates empty registry", func(t *testing.T) {
		registry := NewRegistry()

		require.NotNil(t, registry)
		assert.Equal(t, 0, registry.Len())
		assert.Empty(t, registry.All())
	})

	t.Run("registers initial providers and ignores nil", func(t *testing.T) {
		registry := NewRegistry(newMockProvider(domain.ProviderTypePubMed, true), nil)
		assert.Equal(t, 1, registry.Len())
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	first := newMockProvider(domain.ProviderTypeCrossref, true)
	second := newMockProvider(domain.ProviderTypeCrossref, false)

	registry.Register(first)
	assert.Same(t, first, registry.Get(domain.ProviderTypeCrossref))

	registry.Register(second)
	assert.Same(t, second, registry.Get(domain.ProviderTypeCrossref))
	assert.Equal(t, 1, registry.Len())

	assert.Nil(t, registry.Get(domain.ProviderTypePubMed))
}

func TestRegistry_CanonicalOrder(t *testing.T) {
	registry := NewRegistry(
		newMockProvider(domain.ProviderTypeWebSearch, true),
		newMockProvider(domain.ProviderTypeCrossref, false),
		newMockProvider(domain.ProviderTypePubMed, true),
		newMockProvider(domain.ProviderTypeSemanticScholar, true),
	)

	var all []domain.ProviderType
	for _, p := range registry.All() {
		all = append(all, p.Type())
	}
	assert.Equal(t, []domain.ProviderType{
		domain.ProviderTypePubMed,
		domain.ProviderTypeCrossref,
		domain.ProviderTypeSemanticScholar,
		domain.ProviderTypeWebSearch,
	}, all)

	var enabled []domain.ProviderType
	for _, p := range registry.Enabled() {
		enabled = append(enabled, p.Type())
	}
	assert.Equal(t, []domain.ProviderType{
		domain.ProviderTypePubMed,
		domain.ProviderTypeSemanticScholar,
		domain.ProviderTypeWebSearch,
	}, enabled)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup

	for _, pt := range domain.CanonicalProviders() {
		wg.Add(2)
		go func(pt domain.ProviderType) {
			defer wg.Done()
			registry.Register(newMockProvider(pt, true))
		}(pt)
		go func() {
			defer wg.Done()
			_ = registry.Enabled()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, registry.Len())
}

func TestQuery_RecentWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	q := Query{Now: now}

	assert.Equal(t, time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC), q.RecentFrom())
	assert.Equal(t, now, q.Until())

	zero := Query{}
	assert.WithinDuration(t, time.Now().AddDate(-5, 0, 0), zero.RecentFrom(), time.Minute)
}

func TestQueryFromConfig(t *testing.T) {
	cfg := domain.DefaultSearchConfig("retinal imaging")
	cfg.MaxResultsPerSource = 7
	cfg.OnlyOpenAccess = true
	now := time.Now()

	q := QueryFromConfig(cfg, now)
	assert.Equal(t, Query{
		Text:             "retinal imaging",
		Limit:            7,
		IncludeAbstracts: true,
		OpenAccessOnly:   true,
		Now:              now,
	}, q)
}
