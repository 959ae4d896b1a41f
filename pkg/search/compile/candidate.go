// Package compile translates validated query.* values and filter.Tree
// values into parameterized SQL: the candidate CTE (§4.4), the pivot CTE
// that reconstructs EAV rows into per-entity columns, and the supplemental
// DiscoverPaths schema-discovery operation.
package compile

import (
	"fmt"
	"strings"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/sqlbuild"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// CandidateSQL is a compiled candidate CTE: the `WITH candidate AS (...)`
// body (without the `WITH candidate AS` wrapper, so callers can embed it
// into a larger statement) plus its positional arguments.
type CandidateSQL struct {
	Body string
	Args []any
}

// BuildCandidateCTE compiles the §4.4 candidate CTE: a DISTINCT
// (entity_id, entity_title) selection over index_row restricted to
// entityType and the given filter tree. filters may be nil, meaning "no
// filter restriction beyond entity_type".
func BuildCandidateCTE(entityType model.EntityType, filters filter.Tree) (CandidateSQL, error) {
	b := sqlbuild.New()
	entityPh := b.Arg(string(entityType))

	where := fmt.Sprintf("candidate.entity_type = %s", entityPh)
	if filters != nil {
		if err := filter.ValidateDepth(filters); err != nil {
			return CandidateSQL{}, err
		}
		expr, err := filters.ToExpression(b, entityType)
		if err != nil {
			return CandidateSQL{}, fmt.Errorf("compile: candidate cte: %w", err)
		}
		where += " AND (" + expr + ")"
	}

	body := fmt.Sprintf(
		"SELECT DISTINCT candidate.entity_id, candidate.entity_title\nFROM index_row AS candidate\nWHERE %s",
		where,
	)
	return CandidateSQL{Body: body, Args: b.Args()}, nil
}

// SanitizeAlias replaces '.' and '-' with '_', per §4.4's "alias(p) replaces
// '.' and '-' with '_'".
func SanitizeAlias(path string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return r.Replace(path)
}
