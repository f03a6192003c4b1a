package ai

import (
	"strings"
	"sync"
)

// Registry holds the providers known to the orchestrator, keyed by name.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
}

// NewRegistry builds a registry pre-populated with the given providers.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider)}
	for _, provider := range providers {
		registry.Register(provider)
	}
	return registry
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(provider Provider) {
	if provider == nil {
		return
	}
	name := normalizeName(provider.Name())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = provider
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[normalizeName(name)]
	return provider, ok
}

// Names lists provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Statuses reports availability and info of every registered provider.
func (r *Registry) Statuses() map[string]ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make(map[string]ProviderStatus, len(r.providers))
	for name, provider := range r.providers {
		statuses[name] = ProviderStatus{
			Available: provider.Available(),
			Info:      provider.Info(),
		}
	}
	return statuses
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
