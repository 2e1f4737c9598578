package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
)

// Ensure Registry implements ChatRegistry
var _ driven.ChatRegistry = (*Registry)(nil)

// Registry holds the configured chat providers keyed by provider id.
// The first registered provider becomes the default unless overridden.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]driven.ChatProvider
	defaultID string
}

// NewRegistry creates an empty chat provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]driven.ChatProvider),
	}
}

// Register adds a provider under its own id.
// Registering the same id twice replaces the earlier provider.
func (r *Registry) Register(provider driven.ChatProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.ProviderID()
	r.providers[id] = provider
	if r.defaultID == "" {
		r.defaultID = id
	}
}

// SetDefault marks an already registered provider as the default.
// Unknown ids fail with domain.ErrInvalidProvider.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrInvalidProvider, id)
	}
	r.defaultID = id
	return nil
}

// Get returns the provider registered under the given id
func (r *Registry) Get(id string) (driven.ChatProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, id)
	}
	return provider, nil
}

// Default returns the default provider.
// An empty registry fails with domain.ErrNotConfigured.
func (r *Registry) Default() (driven.ChatProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultID == "" {
		return nil, fmt.Errorf("%w: no chat provider registered", domain.ErrNotConfigured)
	}
	return r.providers[r.defaultID], nil
}

// IDs returns the registered provider ids in sorted order
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
