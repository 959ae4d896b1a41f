package retrieve

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
)

// ProcessHybridRetriever implements §4.6.5: a PROCESS-only specialization of
// RrfHybridRetriever that UNION ALLs a fuzzy source over the live
// `processes.last_step.state` JSONB blob into field_candidates, so matches
// against process state that has not yet been indexed still surface. It
// otherwise fuses scores identically to RrfHybridRetriever.
type ProcessHybridRetriever struct {
	RrfHybridRetriever
}

func (r ProcessHybridRetriever) Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error) {
	sql, args := r.buildSQL(candidate, cq)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: process hybrid: %w", err)
	}
	return collectRows(rows)
}

func (r ProcessHybridRetriever) buildSQL(candidate compile.CandidateSQL, cq CandidateQuery) (string, []any) {
	args := append([]any{}, candidate.Args...)
	vecPh := appendArg(&args, pgvector.NewVector(cq.QueryEmbedding))
	termPh := appendArg(&args, cq.QueryText)
	fieldLimitPh := appendArg(&args, r.fieldCandidatesLimit())

	k, rrfMax, beta := r.fusionConstants()
	kPh := appendArg(&args, k)
	rrfMaxPh := appendArg(&args, rrfMax)
	betaPh := appendArg(&args, beta)
	perfectPh := appendArg(&args, r.perfectThreshold())

	cursorClause := ""
	if cq.Cursor != nil {
		scorePh := appendArg(&args, cq.Cursor.Score)
		idPh := appendArg(&args, cq.Cursor.ID)
		cursorClause = fmt.Sprintf("WHERE (score, entity_id) < (%s::numeric(38,12), %s::uuid)", scorePh, idPh)
	}
	limitPh := appendArg(&args, cq.Limit)

	processStateSource := fmt.Sprintf(`	UNION ALL
	SELECT p.process_id AS entity_id,
	       'process.last_step.state.' || kv.key AS path,
	       kv.value AS value,
	       NULL::float8 AS semantic_distance,
	       word_similarity(%s, kv.value) AS fuzzy_score
	FROM processes p
	JOIN candidate ON candidate.entity_id = p.process_id
	CROSS JOIN LATERAL jsonb_each_text(p.last_step -> 'state') AS kv(key, value)
	WHERE %s <%% kv.value
	LIMIT %s`, termPh, termPh, fieldLimitPh)

	sql := fmt.Sprintf(`WITH candidate AS (
%s
),
field_candidates AS (
%s
%s
)%s`,
		indent(candidate.Body),
		fieldCandidatesCTE(termPh, vecPh, fieldLimitPh),
		processStateSource,
		rankedSelect(k, rrfMax, beta, kPh, betaPh, rrfMaxPh, perfectPh, cursorClause, limitPh),
	)

	return sql, args
}
