// Package validate implements the §4.3/§6 "Validation surface": a query is
// rejected with a specific error kind before compilation, checking filter
// path presence, type compatibility, entity-prefix convention, and ltree
// pattern validity.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity a known path
// must reach against an unrecognised one before it is offered as a typo
// suggestion in [PathNotFoundError].
const suggestionThreshold = 0.85

// EmptyFilterPathError is returned when a PathFilter carries an empty path
// with a non-path-only condition.
type EmptyFilterPathError struct{}

func (EmptyFilterPathError) Error() string { return "validate: filter path must not be empty" }

// PathNotFoundError is returned when a filter references a path never
// observed in the index for the query's entity type. Suggestion, when
// non-empty, names the closest known path by Jaro-Winkler similarity — a
// likely typo correction.
type PathNotFoundError struct {
	Path       string
	Suggestion string
}

func (e PathNotFoundError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("validate: path %q was not found for this entity type", e.Path)
	}
	return fmt.Sprintf("validate: path %q was not found for this entity type (did you mean %q?)", e.Path, e.Suggestion)
}

// IncompatibleFilterTypeError is returned when a filter's condition kind
// does not match the stored value_type of the path it targets (e.g. a
// NumericCondition against a STRING path).
type IncompatibleFilterTypeError struct {
	Path     string
	Expected model.FieldKind
	Got      string
}

func (e IncompatibleFilterTypeError) Error() string {
	return fmt.Sprintf("validate: path %q has stored type %s, incompatible with condition kind %s", e.Path, e.Expected, e.Got)
}

// InvalidEntityPrefixError is returned when a non-wildcard path does not
// begin with "<entity_type_lower>.".
type InvalidEntityPrefixError struct {
	Path       string
	EntityType model.EntityType
}

func (e InvalidEntityPrefixError) Error() string {
	return fmt.Sprintf("validate: path %q must start with %q", e.Path, e.EntityType.Lower()+".")
}

// InvalidLtreePatternError is returned when an lquery/ltree pattern fails a
// dry-cast check.
type InvalidLtreePatternError struct {
	Pattern string
	Cause   error
}

func (e InvalidLtreePatternError) Error() string {
	return fmt.Sprintf("validate: invalid ltree pattern %q: %v", e.Pattern, e.Cause)
}

func (e InvalidLtreePatternError) Unwrap() error { return e.Cause }

// conditionKindName returns a short label used in IncompatibleFilterTypeError
// messages and the compatibility table below.
func conditionKindName(c filter.Condition) string {
	switch c.(type) {
	case filter.EqualityCondition:
		return "EQUALITY"
	case filter.StringCondition:
		return "STRING"
	case filter.NumericCondition:
		return "NUMERIC"
	case filter.DateCondition:
		return "DATE"
	case filter.LtreeCondition:
		return "LTREE"
	default:
		return "UNKNOWN"
	}
}

// compatibleKinds lists which stored FieldKinds a condition kind may target.
var compatibleKinds = map[string][]model.FieldKind{
	"EQUALITY": {model.FieldKindBoolean, model.FieldKindUUID},
	"STRING":   {model.FieldKindString, model.FieldKindUUID, model.FieldKindBlock, model.FieldKindResourceType},
	"NUMERIC":  {model.FieldKindInteger, model.FieldKindFloat},
	"DATE":     {model.FieldKindDatetime},
	"LTREE":    {model.FieldKindString, model.FieldKindUUID, model.FieldKindBlock, model.FieldKindResourceType},
}

// LtreeCaster validates an lquery/lquery-like pattern without executing
// business logic against it — implemented against the database by
// dry-casting the pattern inside a transaction that is always rolled back
// (§6).
type LtreeCaster interface {
	ValidateLquery(ctx context.Context, pattern string) error
}

// Validate walks tree, checking every PathFilter leaf against pathsByKind
// (as returned by compile.DiscoverPaths, indexed by path) and, for
// LtreeCondition MATCHES_LQUERY leaves, against caster.
func Validate(ctx context.Context, entityType model.EntityType, tree filter.Tree, pathsByKind map[string]model.FieldKind, caster LtreeCaster) error {
	if tree == nil {
		return nil
	}
	return validateNode(ctx, entityType, tree, pathsByKind, caster)
}

func validateNode(ctx context.Context, entityType model.EntityType, node filter.Tree, pathsByKind map[string]model.FieldKind, caster LtreeCaster) error {
	switch n := node.(type) {
	case filter.PathFilter:
		return validateLeaf(ctx, entityType, n, pathsByKind, caster)
	case filter.Group:
		for _, child := range n.Children {
			if err := validateNode(ctx, entityType, child, pathsByKind, caster); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("validate: unknown filter tree node type %T", node)
	}
}

func validateLeaf(ctx context.Context, entityType model.EntityType, leaf filter.PathFilter, pathsByKind map[string]model.FieldKind, caster LtreeCaster) error {
	normalized := leaf.Normalize()

	if normalized.Condition == nil {
		return EmptyFilterPathError{}
	}

	if lc, ok := normalized.Condition.(filter.LtreeCondition); ok && lc.Op == filter.LtreeMatchesLquery && caster != nil {
		if err := caster.ValidateLquery(ctx, lc.Value); err != nil {
			return InvalidLtreePatternError{Pattern: lc.Value, Cause: err}
		}
	}

	if normalized.Path == "*" {
		return nil // path-only operator relocated its target into the condition value
	}
	if normalized.Path == "" {
		return EmptyFilterPathError{}
	}

	prefix := entityType.Lower() + "."
	if !strings.HasPrefix(normalized.Path, prefix) {
		return InvalidEntityPrefixError{Path: normalized.Path, EntityType: entityType}
	}

	storedKind, found := pathsByKind[normalized.Path]
	if !found {
		return PathNotFoundError{Path: normalized.Path, Suggestion: closestPath(pathsByKind, normalized.Path)}
	}

	kindName := conditionKindName(normalized.Condition)
	allowed := compatibleKinds[kindName]
	compatible := false
	for _, k := range allowed {
		if k == storedKind {
			compatible = true
			break
		}
	}
	if !compatible {
		return IncompatibleFilterTypeError{Path: normalized.Path, Expected: storedKind, Got: kindName}
	}
	return nil
}

// closestPath returns the known path in pathsByKind most similar to path by
// Jaro-Winkler distance, or "" if none clears suggestionThreshold.
func closestPath(pathsByKind map[string]model.FieldKind, path string) string {
	var best string
	var bestScore float64
	for candidate := range pathsByKind {
		score := matchr.JaroWinkler(path, candidate, false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}

// PathsByKind builds the lookup map Validate expects from DiscoverPaths'
// output.
func PathsByKind(infos []compile.PathInfo) map[string]model.FieldKind {
	out := make(map[string]model.FieldKind, len(infos))
	for _, i := range infos {
		out[i.Path] = i.ValueType
	}
	return out
}
