// Package sqlbuild provides a minimal incremental SQL predicate builder used
// by the query compiler and filter AST to emit parameterized PostgreSQL
// fragments without string concatenation of user-controlled values.
//
// It deliberately does not attempt to be a general-purpose query builder (no
// dialect abstraction, no struct scanning): it tracks a running positional
// argument list and hands back "$N" placeholders, the same pattern used
// throughout the surrounding codebase for hand-rolled WHERE clauses.
package sqlbuild

import "fmt"

// Builder accumulates positional arguments ($1, $2, ...) for a single SQL
// statement. It is not safe for concurrent use — each statement under
// construction should use its own Builder.
type Builder struct {
	args []any
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Arg appends v as the next positional argument and returns its placeholder
// (e.g. "$3").
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Args returns the accumulated argument slice, in positional order. The
// returned slice must not be mutated by the caller.
func (b *Builder) Args() []any {
	return b.args
}

// Len returns the number of arguments accumulated so far.
func (b *Builder) Len() int {
	return len(b.args)
}
