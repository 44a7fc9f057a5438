package providers

import (
	"sort"
	"sync"
)

// Registry manages provider adapters. It provides thread-safe registration
// and retrieval; the concurrent fan-out itself lives in the dispatch package.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. A provider with the same ID
// replaces the previous one. Thread-safe.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns a provider by ID, or nil if not registered. Thread-safe.
func (r *Registry) Get(id string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[id]
}

// IDs returns the IDs of all registered providers in sorted order. The
// returned slice is a snapshot. Thread-safe.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Enabled returns only providers whose IsEnabled reports true. The returned
// slice is a snapshot. Thread-safe.
func (r *Registry) Enabled() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}
