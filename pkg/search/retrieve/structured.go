package retrieve

import (
	"context"
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
)

// StructuredRetriever implements §4.6.1: used when no text query is
// present, it returns every candidate with a literal score of 1.0, ordered
// purely by entity_id.
type StructuredRetriever struct{}

func (StructuredRetriever) Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error) {
	sql, args := buildStructuredSQL(candidate, cq)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: structured: %w", err)
	}
	return collectRows(rows)
}

func buildStructuredSQL(candidate compile.CandidateSQL, cq CandidateQuery) (string, []any) {
	args := append([]any{}, candidate.Args...)

	where := "TRUE"
	if cq.Cursor != nil {
		ph := appendArg(&args, cq.Cursor.ID)
		where = fmt.Sprintf("candidate.entity_id > %s::uuid", ph)
	}
	limitPh := appendArg(&args, cq.Limit)

	sql := fmt.Sprintf(`WITH candidate AS (
%s
)
SELECT candidate.entity_id, candidate.entity_title,
       '1.000000000000'::numeric(38,12) AS score,
       NULL::text AS highlight_text, NULL::text AS highlight_path,
       FALSE AS perfect_match
FROM candidate
WHERE %s
ORDER BY candidate.entity_id ASC
LIMIT %s`, indent(candidate.Body), where, limitPh)

	return sql, args
}
