package compile

import (
	"context"
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// PathInfo is one distinct (path, value_type) pair observed for an entity
// type, annotated as a leaf or ancestor component (§4.4 "Schema/path
// discovery").
type PathInfo struct {
	Path       string
	ValueType  model.FieldKind
	IsAncestor bool // true when this path is a prefix component of a longer path
}

// PathStore is the narrow persistence collaborator DiscoverPaths queries
// against.
type PathStore interface {
	// DistinctPaths returns every distinct (path, value_type) pair stored for
	// entityType.
	DistinctPaths(ctx context.Context, entityType model.EntityType) ([]PathInfo, error)
}

// DiscoverPaths returns the distinct (path, value_type) pairs observed for
// entityType, each marked as a leaf or an ancestor of a longer path — used
// by the Validator's PathNotFoundError check and exposed as the read-only
// "list_paths" MCP tool so callers can discover valid filter paths without
// reading source (§4.4, grounded in original_source's build_paths_query).
func DiscoverPaths(ctx context.Context, store PathStore, entityType model.EntityType) ([]PathInfo, error) {
	paths, err := store.DistinctPaths(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("compile: discover paths: %w", err)
	}

	leafSet := make(map[string]bool, len(paths))
	for _, p := range paths {
		leafSet[p.Path] = true
	}
	for i, p := range paths {
		paths[i].IsAncestor = hasDescendant(leafSet, p.Path)
	}
	return paths, nil
}

// hasDescendant reports whether any path in leafSet is a strict,
// dot-separated descendant of path.
func hasDescendant(leafSet map[string]bool, path string) bool {
	prefix := path + "."
	for other := range leafSet {
		if len(other) > len(prefix) && other[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
