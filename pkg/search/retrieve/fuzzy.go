package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// DefaultFuzzyThreshold is the minimum word_similarity a row must clear to
// count as a fuzzy candidate at all (applied in addition to the `<%`
// operator's own GUC-controlled threshold, as an explicit belt-and-braces
// cutoff per §4.6.2).
const DefaultFuzzyThreshold = 0.3

// searchableValueTypesSQL renders model.SearchableFieldKinds as a SQL
// `IN (...)` literal list, so the fuzzy/RRF value_type filter can never
// drift from the canonical FieldKind set.
var searchableValueTypesSQL = buildSearchableValueTypesSQL()

func buildSearchableValueTypesSQL() string {
	quoted := make([]string, len(model.SearchableFieldKinds))
	for i, k := range model.SearchableFieldKinds {
		quoted[i] = "'" + string(k) + "'"
	}
	return "(" + strings.Join(quoted, ",") + ")"
}

// FuzzyRetriever implements §4.6.2: used when no usable embedding exists or
// query_text is a single word without one. It ranks entities by their best
// trigram word_similarity against the query term.
type FuzzyRetriever struct {
	// Threshold overrides DefaultFuzzyThreshold when non-zero.
	Threshold float64
}

func (r FuzzyRetriever) threshold() float64 {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultFuzzyThreshold
}

func (r FuzzyRetriever) Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error) {
	sql, args := r.buildSQL(candidate, cq)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: fuzzy: %w", err)
	}
	return collectRows(rows)
}

func (r FuzzyRetriever) buildSQL(candidate compile.CandidateSQL, cq CandidateQuery) (string, []any) {
	args := append([]any{}, candidate.Args...)
	termPh := appendArg(&args, cq.QueryText)
	thresholdPh := appendArg(&args, r.threshold())

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
scored AS (
	SELECT ir.entity_id, candidate.entity_title, ir.path, ir.value,
	       word_similarity(%s, ir.value) AS sim
	FROM index_row ir
	JOIN candidate ON candidate.entity_id = ir.entity_id
	WHERE ir.value_type IN %s
	  AND %s <%% ir.value
	  AND word_similarity(%s, ir.value) > %s
),
ranked AS (
	SELECT entity_id, entity_title, path, value, sim,
	       row_number() OVER (PARTITION BY entity_id ORDER BY sim DESC, path ASC) AS rn,
	       round(max(sim) OVER (PARTITION BY entity_id)::numeric, 12) AS score
	FROM scored
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
LIMIT %s`, indent(candidate.Body), termPh, searchableValueTypesSQL, termPh, termPh, thresholdPh, cursorClause, limitPh)

	return sql, args
}
