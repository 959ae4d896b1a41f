// Package filter implements the recursive boolean FilterTree (§3.1, §4.3):
// a tree of typed leaf conditions compiled to parameterized SQL predicates
// against the flat index table.
package filter

import "fmt"

// MaxDepth bounds the recursion depth of a FilterTree, per §3.1. A tree
// deeper than this is rejected at construction time.
const MaxDepth = 8

// NumericKind distinguishes the SQL cast applied by a NumericCondition.
type NumericKind string

const (
	NumericKindInteger NumericKind = "INTEGER"
	NumericKindFloat   NumericKind = "FLOAT"
)

// Condition is the discriminated union of leaf comparison operators (§3.1
// FilterCondition). Each concrete type implements Compile, which emits its
// SQL fragment against the given value-column expression.
type Condition interface {
	// Compile emits the SQL boolean expression comparing valueCol to this
	// condition, appending any parameters to b.
	Compile(b Builder, valueCol string) (string, error)

	// isPathOnly reports whether this condition operates on the path column
	// instead of the value column (HAS_COMPONENT, NOT_HAS_COMPONENT,
	// PATH_MATCH — the path-only operators of §4.3).
	isPathOnly() bool
}

// Builder is the subset of *sqlbuild.Builder used by conditions, kept as an
// interface here so this package does not import internal/sqlbuild directly
// into its public API.
type Builder interface {
	Arg(v any) string
}

// EqualityOp is the operator set for EqualityCondition.
type EqualityOp string

const (
	EqualityEQ  EqualityOp = "EQ"
	EqualityNEQ EqualityOp = "NEQ"
)

// EqualityCondition compares the raw string value column, per §4.3's
// `Equality(EQ/NEQ)` row: `col [!]= str(value)`.
type EqualityCondition struct {
	Op    EqualityOp
	Value string
}

func (c EqualityCondition) isPathOnly() bool { return false }

func (c EqualityCondition) Compile(b Builder, valueCol string) (string, error) {
	ph := b.Arg(c.Value)
	switch c.Op {
	case EqualityEQ:
		return fmt.Sprintf("%s = %s", valueCol, ph), nil
	case EqualityNEQ:
		return fmt.Sprintf("%s != %s", valueCol, ph), nil
	default:
		return "", fmt.Errorf("filter: unknown equality operator %q", c.Op)
	}
}

// StringOp is the operator set for StringCondition.
type StringOp string

const (
	StringEQ   StringOp = "EQ"
	StringNEQ  StringOp = "NEQ"
	StringLIKE StringOp = "LIKE"
)

// StringCondition is identical to EqualityCondition for EQ/NEQ but also
// supports LIKE, which requires a wildcard character at construction time
// (§4.3: "LIKE requires % or _ in value").
type StringCondition struct {
	Op    StringOp
	Value string
}

func (c StringCondition) isPathOnly() bool { return false }

// Validate enforces the LIKE-requires-wildcard construction-time check.
func (c StringCondition) Validate() error {
	if c.Op == StringLIKE && !containsWildcard(c.Value) {
		return fmt.Errorf("filter: LIKE condition value %q must contain %% or _", c.Value)
	}
	return nil
}

func containsWildcard(s string) bool {
	for _, r := range s {
		if r == '%' || r == '_' {
			return true
		}
	}
	return false
}

func (c StringCondition) Compile(b Builder, valueCol string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	ph := b.Arg(c.Value)
	switch c.Op {
	case StringEQ:
		return fmt.Sprintf("%s = %s", valueCol, ph), nil
	case StringNEQ:
		return fmt.Sprintf("%s != %s", valueCol, ph), nil
	case StringLIKE:
		return fmt.Sprintf("%s LIKE %s", valueCol, ph), nil
	default:
		return "", fmt.Errorf("filter: unknown string operator %q", c.Op)
	}
}

// NumericOp is the operator set for NumericCondition.
type NumericOp string

const (
	NumericEQ      NumericOp = "EQ"
	NumericNEQ     NumericOp = "NEQ"
	NumericLT      NumericOp = "LT"
	NumericLTE     NumericOp = "LTE"
	NumericGT      NumericOp = "GT"
	NumericGTE     NumericOp = "GTE"
	NumericBETWEEN NumericOp = "BETWEEN"
)

// NumericCondition casts the value column to INTEGER or DOUBLE PRECISION
// (per Kind) and compares, per §4.3's Numeric row. BETWEEN is inclusive on
// both ends (`>= start AND <= end`) and requires Start <= End.
type NumericCondition struct {
	Op    NumericOp
	Kind  NumericKind
	Value string // used for all ops except BETWEEN
	Start string // BETWEEN lower bound
	End   string // BETWEEN upper bound
}

func (c NumericCondition) isPathOnly() bool { return false }

func (c NumericCondition) castType() string {
	if c.Kind == NumericKindFloat {
		return "DOUBLE PRECISION"
	}
	return "INTEGER"
}

func (c NumericCondition) Compile(b Builder, valueCol string) (string, error) {
	castCol := fmt.Sprintf("CAST(%s AS %s)", valueCol, c.castType())

	if c.Op == NumericBETWEEN {
		if c.Start == "" || c.End == "" {
			return "", fmt.Errorf("filter: numeric BETWEEN requires both start and end")
		}
		startPh := b.Arg(c.Start)
		endPh := b.Arg(c.End)
		return fmt.Sprintf("%s >= CAST(%s AS %s) AND %s <= CAST(%s AS %s)",
			castCol, startPh, c.castType(), castCol, endPh, c.castType()), nil
	}

	ph := b.Arg(c.Value)
	castArg := fmt.Sprintf("CAST(%s AS %s)", ph, c.castType())
	switch c.Op {
	case NumericEQ:
		return fmt.Sprintf("%s = %s", castCol, castArg), nil
	case NumericNEQ:
		return fmt.Sprintf("%s != %s", castCol, castArg), nil
	case NumericLT:
		return fmt.Sprintf("%s < %s", castCol, castArg), nil
	case NumericLTE:
		return fmt.Sprintf("%s <= %s", castCol, castArg), nil
	case NumericGT:
		return fmt.Sprintf("%s > %s", castCol, castArg), nil
	case NumericGTE:
		return fmt.Sprintf("%s >= %s", castCol, castArg), nil
	default:
		return "", fmt.Errorf("filter: unknown numeric operator %q", c.Op)
	}
}

// DateOp is the operator set for DateCondition.
type DateOp string

const (
	DateEQ      DateOp = "EQ"
	DateNEQ     DateOp = "NEQ"
	DateLT      DateOp = "LT"
	DateLTE     DateOp = "LTE"
	DateGT      DateOp = "GT"
	DateGTE     DateOp = "GTE"
	DateBETWEEN DateOp = "BETWEEN"
)

// DateCondition casts the value column to TIMESTAMPTZ and compares, per
// §4.3's Date row. Unlike NumericCondition, BETWEEN is half-open
// (`>= start AND < end`), matching the "strictly-after validation" note.
type DateCondition struct {
	Op    DateOp
	Value string
	Start string
	End   string
}

func (c DateCondition) isPathOnly() bool { return false }

func (c DateCondition) Compile(b Builder, valueCol string) (string, error) {
	castCol := fmt.Sprintf("CAST(%s AS TIMESTAMPTZ)", valueCol)

	if c.Op == DateBETWEEN {
		if c.Start == "" || c.End == "" {
			return "", fmt.Errorf("filter: date BETWEEN requires both start and end")
		}
		startPh := b.Arg(c.Start)
		endPh := b.Arg(c.End)
		return fmt.Sprintf("%s >= CAST(%s AS TIMESTAMPTZ) AND %s < CAST(%s AS TIMESTAMPTZ)",
			castCol, startPh, castCol, endPh), nil
	}

	ph := b.Arg(c.Value)
	castArg := fmt.Sprintf("CAST(%s AS TIMESTAMPTZ)", ph)
	switch c.Op {
	case DateEQ:
		return fmt.Sprintf("%s = %s", castCol, castArg), nil
	case DateNEQ:
		return fmt.Sprintf("%s != %s", castCol, castArg), nil
	case DateLT:
		return fmt.Sprintf("%s < %s", castCol, castArg), nil
	case DateLTE:
		return fmt.Sprintf("%s <= %s", castCol, castArg), nil
	case DateGT:
		return fmt.Sprintf("%s > %s", castCol, castArg), nil
	case DateGTE:
		return fmt.Sprintf("%s >= %s", castCol, castArg), nil
	default:
		return "", fmt.Errorf("filter: unknown date operator %q", c.Op)
	}
}

// LtreeOp is the operator set for LtreeCondition.
type LtreeOp string

const (
	LtreeMatchesLquery  LtreeOp = "MATCHES_LQUERY"
	LtreeIsAncestor     LtreeOp = "IS_ANCESTOR"
	LtreeIsDescendant   LtreeOp = "IS_DESCENDANT"
	LtreePathMatch      LtreeOp = "PATH_MATCH"
	LtreeHasComponent   LtreeOp = "HAS_COMPONENT"
	LtreeNotHasComponent LtreeOp = "NOT_HAS_COMPONENT"
)

// LtreeCondition implements the label-path operators of §4.3. The
// path-only operators (PATH_MATCH, HAS_COMPONENT, NOT_HAS_COMPONENT)
// evaluate against the path column, not the value column; Compile is called
// with valueCol set to the path column expression by the caller in that case
// (see Tree.ToExpression).
type LtreeCondition struct {
	Op    LtreeOp
	Value string
}

func (c LtreeCondition) isPathOnly() bool {
	switch c.Op {
	case LtreePathMatch, LtreeHasComponent, LtreeNotHasComponent:
		return true
	default:
		return false
	}
}

func (c LtreeCondition) Compile(b Builder, col string) (string, error) {
	ph := b.Arg(c.Value)
	switch c.Op {
	case LtreeIsDescendant:
		return fmt.Sprintf("%s <@ %s::ltree", col, ph), nil
	case LtreeIsAncestor:
		return fmt.Sprintf("%s @> %s::ltree", col, ph), nil
	case LtreeMatchesLquery:
		return fmt.Sprintf("%s ~ %s::lquery", col, ph), nil
	case LtreePathMatch:
		return fmt.Sprintf("%s = %s", col, ph), nil
	case LtreeHasComponent:
		return fmt.Sprintf("EXISTS (SELECT 1 FROM index_row ir2 WHERE ir2.entity_id = index_row.entity_id AND ir2.path ~ (%s || '.*')::lquery)", ph), nil
	case LtreeNotHasComponent:
		return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM index_row ir2 WHERE ir2.entity_id = index_row.entity_id AND ir2.path ~ (%s || '.*')::lquery)", ph), nil
	default:
		return "", fmt.Errorf("filter: unknown ltree operator %q", c.Op)
	}
}
