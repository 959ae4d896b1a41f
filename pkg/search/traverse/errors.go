package traverse

import "fmt"

// ModelLoadError indicates a Traverser could not instantiate or serialize a
// domain model for the entity it was given (§7). Traversers log it and
// return no fields instead of an error, so the Indexer carries on with the
// rest of the chunk; because no fields were extracted, the entity's
// previously stored paths count as stale and are deleted.
type ModelLoadError struct {
	EntityID string
	Cause    error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("traverse: failed to load model for entity %q: %v", e.EntityID, e.Cause)
}

func (e *ModelLoadError) Unwrap() error { return e.Cause }

// ProductNotInRegistryError indicates the product referenced by a
// subscription traversal has no corresponding entry in the domain model
// registry (§7). Propagation is identical to ModelLoadError.
type ProductNotInRegistryError struct {
	ProductName string
}

func (e *ProductNotInRegistryError) Error() string {
	return fmt.Sprintf("traverse: product %q not in registry", e.ProductName)
}
