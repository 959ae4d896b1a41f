package retrieve

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
)

// SemanticRetriever implements §4.6.3: used when a usable vector is
// available and the query is multi-word. It ranks entities by the L2
// distance between the query embedding and their closest indexed field,
// folding raw distance into a bounded, monotonic score.
type SemanticRetriever struct{}

func (SemanticRetriever) Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error) {
	sql, args := buildSemanticSQL(candidate, cq)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: semantic: %w", err)
	}
	return collectRows(rows)
}

func buildSemanticSQL(candidate compile.CandidateSQL, cq CandidateQuery) (string, []any) {
	args := append([]any{}, candidate.Args...)
	vecPh := appendArg(&args, pgvector.NewVector(cq.QueryEmbedding))

	cursorClause := ""
	if cq.Cursor != nil {
		scorePh := appendArg(&args, cq.Cursor.Score)
		idPh := appendArg(&args, cq.Cursor.ID)
		cursorClause = fmt.Sprintf("WHERE (score, entity_id) < (%s::numeric(38,12), %s::uuid)", scorePh, idPh)
	}
	limitPh := appendArg(&args, cq.Limit)

	sql := fmt.Sprintf(`WITH candidate AS (
%s
),
distances AS (
	SELECT ir.entity_id, candidate.entity_title, ir.path, ir.value,
	       ir.embedding <-> %s AS distance
	FROM index_row ir
	JOIN candidate ON candidate.entity_id = ir.entity_id
	WHERE ir.embedding IS NOT NULL
),
ranked AS (
	SELECT entity_id, entity_title, path, value, distance,
	       row_number() OVER (PARTITION BY entity_id ORDER BY distance ASC, path ASC) AS rn,
	       round((1.0 / (1.0 + min(distance) OVER (PARTITION BY entity_id)))::numeric, 12) AS score
	FROM distances
),
final AS (
	SELECT entity_id, entity_title, score, value AS highlight_text, path AS highlight_path, FALSE AS perfect_match
	FROM ranked
	WHERE rn = 1
)
SELECT entity_id, entity_title, score, highlight_text, highlight_path, perfect_match
FROM final
%s
ORDER BY score DESC, entity_id ASC
LIMIT %s`, indent(candidate.Body), vecPh, cursorClause, limitPh)

	return sql, args
}
