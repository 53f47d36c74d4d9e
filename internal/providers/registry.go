package providers

import (
	"fmt"
	"strings"
	"sync"

	autherrors "github.com/lukaszraczylo/authflow/internal/errors"
)

// Registry maps provider names to their capability records.
// Lookups are case-insensitive and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
	order     []string
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...*Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register normalizes and validates p and adds it to the registry.
func (r *Registry) Register(p *Provider) error {
	if p == nil {
		return autherrors.NewInvalidProviderConfig("", "provider is nil")
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := p.Key()
	if _, exists := r.providers[key]; exists {
		return autherrors.NewInvalidProviderConfig(p.Name, fmt.Sprintf("provider %q registered twice", key))
	}
	r.providers[key] = p
	r.order = append(r.order, key)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return nil, autherrors.NewProviderNotFound(name)
}

// Names returns the registered provider keys in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All returns the registered providers in registration order.
func (r *Registry) All() []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Provider, 0, len(r.order))
	for _, key := range r.order {
		all = append(all, r.providers[key])
	}
	return all
}
