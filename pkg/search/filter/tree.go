package filter

import (
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// BoolOp is the logical combinator for a Group node.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// UIType annotates a PathFilter with the display type its value should be
// edited/rendered as in a filter-building UI. It has no bearing on SQL
// compilation; it rides along for the benefit of external callers (§3.1).
type UIType string

// Tree is the discriminated union of FilterTree variants: PathFilter (leaf)
// and Group (interior node). Depth is bounded by MaxDepth.
type Tree interface {
	// ToExpression recursively compiles this subtree into a parameterized SQL
	// boolean expression against the index_row table, scoped to entityType.
	ToExpression(b Builder, entityType model.EntityType) (string, error)

	depth() int
}

// PathFilter is a FilterTree leaf: a single typed condition against one
// index path.
type PathFilter struct {
	Path      string
	Condition Condition
	ValueKind UIType
}

func (p PathFilter) depth() int { return 1 }

// Normalize relocates a path-only operator's Path into its Condition's value
// and sets Path to the wildcard "*", per §4.3: "A PathFilter with a path-only
// operator and no explicit value relocates its path into the condition's
// value and sets path = '*' on normalization." Returns a normalized copy;
// p is left unmodified.
func (p PathFilter) Normalize() PathFilter {
	lc, ok := p.Condition.(LtreeCondition)
	if !ok || !lc.isPathOnly() || lc.Value != "" {
		return p
	}
	lc.Value = p.Path
	p.Condition = lc
	p.Path = "*"
	return p
}

// ToExpression compiles this leaf. Path-only operators (HAS_COMPONENT,
// NOT_HAS_COMPONENT, PATH_MATCH) evaluate against the path column and are
// additionally scoped by an entity-type predicate; all other conditions
// evaluate against the value column, scoped to rows whose path equals
// p.Path and whose entity_type matches.
func (p PathFilter) ToExpression(b Builder, entityType model.EntityType) (string, error) {
	if p.Path == "" {
		return "", fmt.Errorf("filter: empty path filter")
	}
	if p.Condition == nil {
		return "", fmt.Errorf("filter: path filter %q has no condition", p.Path)
	}

	entityPh := b.Arg(string(entityType))

	if p.Condition.isPathOnly() {
		expr, err := p.Condition.Compile(b, "index_row.path")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM index_row WHERE index_row.entity_id = candidate.entity_id AND index_row.entity_type = %s AND %s)",
			entityPh, expr,
		), nil
	}

	pathPh := b.Arg(p.Path)
	expr, err := p.Condition.Compile(b, "index_row.value")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM index_row WHERE index_row.entity_id = candidate.entity_id AND index_row.entity_type = %s AND index_row.path = %s AND %s)",
		entityPh, pathPh, expr,
	), nil
}

// Group is a FilterTree interior node combining Children with Op.
type Group struct {
	Op       BoolOp
	Children []Tree
}

func (g Group) depth() int {
	max := 0
	for _, c := range g.Children {
		if d := c.depth(); d > max {
			max = d
		}
	}
	return max + 1
}

func (g Group) ToExpression(b Builder, entityType model.EntityType) (string, error) {
	if len(g.Children) == 0 {
		return "", fmt.Errorf("filter: group has no children")
	}
	sep := " AND "
	if g.Op == Or {
		sep = " OR "
	} else if g.Op != And {
		return "", fmt.Errorf("filter: unknown group operator %q", g.Op)
	}

	exprs := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		expr, err := child.ToExpression(b, entityType)
		if err != nil {
			return "", err
		}
		exprs = append(exprs, "("+expr+")")
	}
	return joinStrings(exprs, sep), nil
}

func joinStrings(ss []string, sep string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}

// ValidateDepth walks t and returns an error if its depth exceeds MaxDepth,
// per §3.1: "Depth ≤ MAX_DEPTH. Validated on construction."
func ValidateDepth(t Tree) error {
	if d := t.depth(); d > MaxDepth {
		return fmt.Errorf("filter: tree depth %d exceeds max depth %d", d, MaxDepth)
	}
	return nil
}
