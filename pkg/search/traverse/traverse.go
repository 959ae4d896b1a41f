// Package traverse implements the Traverser contract of §4.1: walking a
// domain entity into a deterministically sorted list of
// [model.ExtractedField] values.
//
// Domain model definitions are an external collaborator (§1 Out of scope):
// this package never imports the orchestrator's domain packages. Instead,
// each concrete Traverser accepts any entity implementing [Dumper], using a
// registry-of-constructors pattern (internal/config.Registry) rather than
// runtime type introspection over domain structs (§9 "Reflection-based
// traversal").
package traverse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// MaxDepth bounds the recursive walk over nested maps/slices (§4.1: "Recursion
// depth capped at a constant (≈40); exceeding logs and truncates").
const MaxDepth = 40

// ltreeSeparator joins path segments, matching the label-path format used
// throughout the index (§3.1).
const ltreeSeparator = "."

// BlockMarker and ResourceTypeMarker wrap a label to request the emission of
// a structural marker field (§3.1 FieldKind BLOCK / RESOURCE_TYPE) instead of
// recursing into a value.
type BlockMarker struct{ Label string }
type ResourceTypeMarker struct{ Label string }

// Dumper is implemented by any domain entity a Traverser can walk. Dump
// produces a plain nested map/slice/scalar representation, which
// [Traverser.GetFields] then flattens into ExtractedFields.
type Dumper interface {
	Dump() (map[string]any, error)
}

// Traverser is the contract consumed by the Indexer (§4.1, §6).
type Traverser interface {
	// GetFields serializes entity and returns its fields sorted by (segment
	// count, lexicographic path). Returns (nil, nil) — not an error — when
	// the entity cannot be serialized, per §4.1's ModelLoadError handling:
	// the indexer must keep processing the rest of a chunk.
	GetFields(ctx context.Context, entity Dumper, pkName, rootName string) ([]model.ExtractedField, error)
}

// Base implements the shared GetFields/flatten logic; concrete traversers
// embed it and only differ in what Dumper.Dump produces.
type Base struct {
	// EntityLabel names the entity kind for log messages (e.g. "Subscription").
	EntityLabel string
}

// GetFields implements Traverser.
func (b Base) GetFields(ctx context.Context, entity Dumper, pkName, rootName string) ([]model.ExtractedField, error) {
	_ = ctx // reserved: traversal is currently synchronous/CPU-bound (§9 "Async context")

	data, err := entity.Dump()
	if err != nil {
		slog.Error("traverse: failed to serialize entity", "entity", b.EntityLabel, "err", err)
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	return b.flattenSorted(data, rootName), nil
}

// flattenSorted flattens data rooted at rootName and sorts the result by
// (segment count, lexicographic path), per §4.1's deterministic ordering
// requirement. Shared by every concrete traverser so each only needs to
// supply its own Dump-time shaping logic.
func (b Base) flattenSorted(data map[string]any, rootName string) []model.ExtractedField {
	var fields []model.ExtractedField
	flatten(data, rootName, 0, &fields)

	sort.Slice(fields, func(i, j int) bool {
		ci := strings.Count(fields[i].Path, ltreeSeparator)
		cj := strings.Count(fields[j].Path, ltreeSeparator)
		if ci != cj {
			return ci < cj
		}
		return fields[i].Path < fields[j].Path
	})
	return fields
}

// flatten recursively walks data (map[string]any, []any, or a scalar/marker)
// and appends leaf ExtractedFields to out, following §4.1's rules:
//   - maps recurse per key, extending path
//   - a list of length 1 is flattened without an index suffix
//   - longer lists emit index-suffixed paths
//   - nil values are elided
//   - BlockMarker/ResourceTypeMarker emit structural marker fields
func flatten(data any, path string, depth int, out *[]model.ExtractedField) {
	if depth >= MaxDepth {
		slog.Error("traverse: max recursion depth reached", "path", path)
		return
	}

	switch v := data.(type) {
	case nil:
		return
	case map[string]any:
		for key, val := range v {
			flatten(val, model.JoinPath(path, key), depth+1, out)
		}
	case []any:
		if len(v) == 1 {
			flatten(v[0], path, depth+1, out)
			return
		}
		for i, item := range v {
			flatten(item, model.JoinPath(path, strconv.Itoa(i)), depth+1, out)
		}
	case BlockMarker:
		*out = append(*out, model.ExtractedField{Path: path, Value: v.Label, Kind: model.FieldKindBlock})
	case ResourceTypeMarker:
		*out = append(*out, model.ExtractedField{Path: path, Value: v.Label, Kind: model.FieldKindResourceType})
	default:
		field, ok := fromScalar(path, v)
		if ok {
			*out = append(*out, field)
		}
	}
}

// fromScalar converts a raw Go scalar into an ExtractedField, inferring its
// FieldKind the way the original source's ExtractedField.from_raw does.
func fromScalar(path string, v any) (model.ExtractedField, bool) {
	switch val := v.(type) {
	case string:
		return model.ExtractedField{Path: path, Value: val, Kind: model.FieldKindString}, true
	case bool:
		return model.ExtractedField{Path: path, Value: strconv.FormatBool(val), Kind: model.FieldKindBoolean}, true
	case int:
		return model.ExtractedField{Path: path, Value: strconv.Itoa(val), Kind: model.FieldKindInteger}, true
	case int64:
		return model.ExtractedField{Path: path, Value: strconv.FormatInt(val, 10), Kind: model.FieldKindInteger}, true
	case float64:
		return model.ExtractedField{Path: path, Value: strconv.FormatFloat(val, 'f', -1, 64), Kind: model.FieldKindFloat}, true
	case float32:
		return model.ExtractedField{Path: path, Value: strconv.FormatFloat(float64(val), 'f', -1, 32), Kind: model.FieldKindFloat}, true
	case fmt.Stringer:
		return model.ExtractedField{Path: path, Value: val.String(), Kind: model.FieldKindString}, true
	default:
		slog.Warn("traverse: skipping field of unsupported type", "path", path, "type", fmt.Sprintf("%T", v))
		return model.ExtractedField{}, false
	}
}
