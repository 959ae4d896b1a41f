package retrieve

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
)

// Default RRF tuning constants, per §4.6.4.
const (
	DefaultRRFK                = 60
	DefaultFieldCandidatesLimit = 100
	rrfNSources                = 2
	defaultRRFMarginFactor     = 0.05
	defaultRRFPerfectThreshold = 0.9
)

// RrfHybridRetriever implements §4.6.4: used when both a vector and a
// single-word fuzzy term are available. It fuses independent semantic and
// fuzzy rankings via Reciprocal Rank Fusion, boosting any entity whose
// average fuzzy score over its field candidates reaches the perfect-match
// threshold above every non-perfect match.
type RrfHybridRetriever struct {
	// K is the RRF rank-damping constant; zero means DefaultRRFK.
	K int
	// FieldCandidatesLimit bounds how many (entity, field) rows feed the
	// per-entity averages; zero means DefaultFieldCandidatesLimit.
	FieldCandidatesLimit int
	// MarginFactor and PerfectThreshold override their defaults when
	// non-zero, per the fused-score formula in §4.6.4.
	MarginFactor     float64
	PerfectThreshold float64
}

func (r RrfHybridRetriever) k() int {
	if r.K > 0 {
		return r.K
	}
	return DefaultRRFK
}

func (r RrfHybridRetriever) fieldCandidatesLimit() int {
	if r.FieldCandidatesLimit > 0 {
		return r.FieldCandidatesLimit
	}
	return DefaultFieldCandidatesLimit
}

func (r RrfHybridRetriever) marginFactor() float64 {
	if r.MarginFactor > 0 {
		return r.MarginFactor
	}
	return defaultRRFMarginFactor
}

func (r RrfHybridRetriever) perfectThreshold() float64 {
	if r.PerfectThreshold > 0 {
		return r.PerfectThreshold
	}
	return defaultRRFPerfectThreshold
}

// fusionConstants precomputes the §4.6.4 formula's query-independent
// scalars: rrf_max = n_sources/(k+1), margin = rrf_max*margin_factor,
// beta = rrf_max + margin. beta > rrf_max by construction, which is what
// guarantees a perfect match always outranks a non-perfect one.
func (r RrfHybridRetriever) fusionConstants() (k float64, rrfMax, beta float64) {
	k = float64(r.k())
	rrfMax = float64(rrfNSources) / (k + 1)
	margin := rrfMax * r.marginFactor()
	beta = rrfMax + margin
	return k, rrfMax, beta
}

// fieldCandidatesCTE returns the `field_candidates AS (...)` body shared by
// RrfHybridRetriever and ProcessHybridRetriever (which UNION ALLs an
// additional source into it). args/term/vec placeholders are already
// resolved by the caller.
func fieldCandidatesCTE(termPh, vecPh, limitPh string) string {
	return fmt.Sprintf(`	SELECT ir.entity_id, ir.path, ir.value,
	       ir.embedding <-> %s AS semantic_distance,
	       word_similarity(%s, ir.value) AS fuzzy_score
	FROM index_row ir
	JOIN candidate ON candidate.entity_id = ir.entity_id
	WHERE ir.value_type IN %s
	  AND %s <%% ir.value
	ORDER BY fuzzy_score DESC, semantic_distance ASC NULLS LAST
	LIMIT %s`, vecPh, termPh, searchableValueTypesSQL, termPh, limitPh)
}

// rankedSelect renders the final SELECT shared by both hybrid retrievers. It
// reads from the field_candidates CTE the caller has already emitted; its
// inputs are the placeholders for the fusion constants and the perfect-match
// threshold, the cursor clause, and the limit placeholder.
func rankedSelect(k, rrfMax, beta float64, kPh, betaPh, rrfMaxPh, perfectPh, cursorClause, limitPh string) string {
	return fmt.Sprintf(`,
entity_scores AS (
	SELECT entity_id, avg(semantic_distance) AS avg_semantic, avg(fuzzy_score) AS avg_fuzzy
	FROM field_candidates
	GROUP BY entity_id
),
entity_highlights AS (
	SELECT DISTINCT ON (entity_id) entity_id, path AS highlight_path, value AS highlight_text
	FROM field_candidates
	ORDER BY entity_id, fuzzy_score DESC, path ASC
),
ranked AS (
	SELECT entity_id,
	       dense_rank() OVER (ORDER BY avg_semantic ASC) AS sem_rank,
	       dense_rank() OVER (ORDER BY avg_fuzzy DESC) AS fuzzy_rank,
	       avg_fuzzy
	FROM entity_scores
),
final AS (
	SELECT candidate.entity_id, candidate.entity_title,
	       round((
	         (1.0 / (%s + ranked.sem_rank) + 1.0 / (%s + ranked.fuzzy_rank))
	         + %s * (CASE WHEN ranked.avg_fuzzy >= %s THEN 1 ELSE 0 END)
	       ) / (%s + %s), 12) AS score,
	       eh.highlight_text, eh.highlight_path,
	       (ranked.avg_fuzzy >= %s) AS perfect_match
	FROM ranked
	JOIN candidate ON candidate.entity_id = ranked.entity_id
	LEFT JOIN entity_highlights eh ON eh.entity_id = ranked.entity_id
)
SELECT entity_id, entity_title, score, highlight_text, highlight_path, perfect_match
FROM final
%s
ORDER BY score DESC, entity_id ASC
LIMIT %s`, kPh, kPh, betaPh, perfectPh, betaPh, rrfMaxPh, perfectPh, cursorClause, limitPh)
}

func (r RrfHybridRetriever) Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error) {
	sql, args := r.buildSQL(candidate, cq)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: rrf hybrid: %w", err)
	}
	return collectRows(rows)
}

func (r RrfHybridRetriever) buildSQL(candidate compile.CandidateSQL, cq CandidateQuery) (string, []any) {
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

	sql := fmt.Sprintf(`WITH candidate AS (
%s
),
field_candidates AS (
%s
)%s`,
		indent(candidate.Body),
		fieldCandidatesCTE(termPh, vecPh, fieldLimitPh),
		rankedSelect(k, rrfMax, beta, kPh, betaPh, rrfMaxPh, perfectPh, cursorClause, limitPh),
	)

	return sql, args
}
