package papersources

import (
	"sync"

	"github.com/helixir/literature-search-service/internal/domain"
)

// Registry manages search providers.
// It provides thread-safe registration and retrieval of providers. Listings are
// always returned in the canonical provider order.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderType]Provider
}

// NewRegistry creates a new provider registry, optionally pre-populated.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[domain.ProviderType]Provider),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider to the registry.
// If a provider with the same type already exists, it will be replaced.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
}

// Get returns a provider by type, or nil if not found.
func (r *Registry) Get(pt domain.ProviderType) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[pt]
}

// All returns all registered providers in canonical order.
// The returned slice is a snapshot.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.providers))
	for _, pt := range domain.CanonicalProviders() {
		if p, ok := r.providers[pt]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Enabled returns only enabled providers in canonical order.
func (r *Registry) Enabled() []Provider {
	all := r.All()
	out := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
