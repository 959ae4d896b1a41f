package traverse

import (
	"fmt"
	"sync"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// Registry maps EntityType to its Traverser implementation. It is an open,
// startup-populated dispatch table (§9 "Dynamic model registry") rather than
// runtime type introspection, grounded in the same factory-map pattern as
// internal/config.Registry. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	traversers map[model.EntityType]Traverser
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{traversers: make(map[model.EntityType]Traverser)}
}

// Register associates a Traverser with entityType. Subsequent calls with the
// same EntityType overwrite the previous registration.
func (r *Registry) Register(entityType model.EntityType, t Traverser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traversers[entityType] = t
}

// ErrNotRegistered-style lookup failure.
type notRegisteredError struct {
	entityType model.EntityType
}

func (e *notRegisteredError) Error() string {
	return fmt.Sprintf("traverse: no traverser registered for entity type %q", e.entityType)
}

// For returns the Traverser registered for entityType, or an error if none
// was registered.
func (r *Registry) For(entityType model.EntityType) (Traverser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.traversers[entityType]
	if !ok {
		return nil, &notRegisteredError{entityType: entityType}
	}
	return t, nil
}

// NewDefaultRegistry returns a Registry pre-populated with the four built-in
// traversers (§4.1).
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(model.EntityTypeSubscription, NewSubscriptionTraverser())
	r.Register(model.EntityTypeProduct, NewProductTraverser())
	r.Register(model.EntityTypeProcess, NewProcessTraverser())
	r.Register(model.EntityTypeWorkflow, NewWorkflowTraverser())
	return r
}
