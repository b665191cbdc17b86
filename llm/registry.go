package llm

import (
	"context"
	"sync"

	reqerrors "github.com/vinayprograms/requestkit/errors"
)

// Registry maps provider types to constructed providers. It is the
// capability surface the fallback coordinator attempts against: one
// display name and one Ask function per provider type.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderType]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderType]Provider)}
}

// Register adds or replaces the provider for a type.
func (r *Registry) Register(t ProviderType, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[t] = p
}

// Get returns the provider for a type.
func (r *Registry) Get(t ProviderType) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[t]
	return p, ok
}

// Types returns the registered provider types.
func (r *Registry) Types() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]ProviderType, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	return types
}

// Ask routes one query to the provider named in the request.
func (r *Registry) Ask(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	p, ok := r.Get(req.Provider)
	if !ok {
		return nil, reqerrors.Newf(reqerrors.ErrCodeUnsupported,
			"provider %s is not registered", req.Provider)
	}
	return p.Ask(ctx, req)
}

// ConnectedProvider is one provider the caller's organization has
// configured.
type ConnectedProvider struct {
	Type ProviderType `json:"type"`
	Name string       `json:"name,omitempty"`
}

// ConnectedSource returns the providers the caller's organization has
// configured. Implementations may pre-fetch or fetch on demand.
type ConnectedSource interface {
	Connected(ctx context.Context) ([]ConnectedProvider, error)
}

// StaticSource is a pre-fetched ConnectedSource.
type StaticSource []ConnectedProvider

// Connected implements ConnectedSource.
func (s StaticSource) Connected(ctx context.Context) ([]ConnectedProvider, error) {
	return s, nil
}
