package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
)

// ErrProviderNotRegistered is returned by CreateEmbedder when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps embedding provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	embed map[string]func(ProviderEntry) (embed.Embedder, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{embed: make(map[string]func(ProviderEntry) (embed.Embedder, error))}
}

// RegisterEmbedder registers an embedding provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEmbedder(name string, factory func(ProviderEntry) (embed.Embedder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embed[name] = factory
}

// CreateEmbedder instantiates an embed.Embedder using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateEmbedder(entry ProviderEntry) (embed.Embedder, error) {
	r.mu.RLock()
	factory, ok := r.embed[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embedding/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
