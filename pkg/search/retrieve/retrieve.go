// Package retrieve implements the §4.6 retrievers: the four ranking
// strategies (Structured, Fuzzy, Semantic, RRF Hybrid) that turn a
// candidate set of entities into scored, ordered rows, plus the routing
// logic that picks a strategy for a given query shape.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/page"
)

// Row is one ranked result, per the shared retriever contract: entity_id,
// entity_title, score, and the optional highlight pointing at the row that
// justified the score.
type Row struct {
	EntityID      uuid.UUID
	EntityTitle   string
	Score         string // NUMERIC(38,12), rendered as text for exact keyset comparisons
	HighlightText string
	HighlightPath string
	PerfectMatch  bool
}

// Queryer is the subset of *pgxpool.Pool / pgx.Tx retrievers need. Accepting
// the interface rather than a concrete pool lets callers run a retriever
// inside the same transaction the indexer or a migration uses.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CandidateQuery carries everything a retriever needs beyond the candidate
// CTE itself: the raw query text (for fuzzy/RRF term matching), a resolved
// query embedding (for semantic/RRF distance), the resume cursor for
// keyset pagination, and the page size.
type CandidateQuery struct {
	EntityType     model.EntityType
	QueryText      string
	QueryEmbedding []float32
	Cursor         *page.PageCursor
	Limit          int
}

// Retriever is the shared contract every strategy in §4.6 implements:
// given a compiled candidate CTE and the query context, stream scored rows
// ordered by (score DESC NULLS LAST, entity_id ASC).
type Retriever interface {
	Apply(ctx context.Context, db Queryer, candidate compile.CandidateSQL, cq CandidateQuery) ([]Row, error)
}

// appendArg appends v to args and returns its 1-based "$N" placeholder,
// continuing the numbering of an already-built candidate.Args slice — the
// same running-argument-list pattern internal/sqlbuild uses, inlined here
// because a single retriever statement mixes a pre-built CandidateSQL with
// additional args the retriever itself introduces.
func appendArg(args *[]any, v any) string {
	*args = append(*args, v)
	return fmt.Sprintf("$%d", len(*args))
}

// indent reindents a CTE body by one tab so it reads cleanly nested inside
// a surrounding WITH clause.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "\t" + l
	}
	return strings.Join(lines, "\n")
}

// collectRows scans the six-column result shape every retriever statement
// below is written to project: entity_id, entity_title, score, highlight
// text/path (nullable), perfect_match.
func collectRows(rows pgx.Rows) ([]Row, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var (
			r    Row
			text *string
			path *string
		)
		if err := row.Scan(&r.EntityID, &r.EntityTitle, &r.Score, &text, &path, &r.PerfectMatch); err != nil {
			return Row{}, err
		}
		if text != nil {
			r.HighlightText = *text
		}
		if path != nil {
			r.HighlightPath = *path
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: scan rows: %w", err)
	}
	if results == nil {
		results = []Row{}
	}
	return results, nil
}

// Strategy names the §4.6 retrieval strategies the router chooses between.
type Strategy string

const (
	StrategyEmpty         Strategy = "EMPTY"
	StrategyStructured    Strategy = "STRUCTURED"
	StrategyFuzzy         Strategy = "FUZZY"
	StrategySemantic      Strategy = "SEMANTIC"
	StrategyRRFHybrid     Strategy = "RRF_HYBRID"
	StrategyProcessHybrid Strategy = "PROCESS_HYBRID"
)

// Route implements the §4.6 "Retriever routing" decision table. hasFilters
// reports whether the query carries a non-nil FilterTree; embeddingReady
// reports whether a usable query embedding was resolved (the caller is
// responsible for not vectorizing a bare-UUID query_text, per the routing
// note — see IsVectorizable).
func Route(entityType model.EntityType, hasFilters bool, queryText string, embeddingReady bool) Strategy {
	if !hasFilters && strings.TrimSpace(queryText) == "" {
		return StrategyEmpty
	}
	if strings.TrimSpace(queryText) == "" {
		return StrategyStructured
	}
	if isSingleWord(queryText) && embeddingReady {
		if entityType == model.EntityTypeProcess {
			return StrategyProcessHybrid
		}
		return StrategyRRFHybrid
	}
	if embeddingReady {
		return StrategySemantic
	}
	return StrategyFuzzy
}

// IsVectorizable reports whether queryText should be sent to the embedder
// at all: a query_text that parses as a UUID is routed fuzzy-only, never
// vectorized, per §4.6's closing note.
func IsVectorizable(queryText string) bool {
	_, err := uuid.Parse(strings.TrimSpace(queryText))
	return err != nil
}

func isSingleWord(s string) bool {
	return len(strings.Fields(s)) == 1
}

// For builds the concrete Retriever for strategy, using default RRF tuning.
// StrategyEmpty has no retriever — callers must short-circuit before
// reaching here.
func For(strategy Strategy) (Retriever, error) {
	return ForTuned(strategy, RrfHybridRetriever{})
}

// ForTuned builds the concrete Retriever for strategy, applying tuning to
// the RRF/process-hybrid cases (§4.6.4, §9's configurable K,
// field_candidates_limit, margin_factor, and perfect_threshold). Other
// strategies ignore tuning.
func ForTuned(strategy Strategy, tuning RrfHybridRetriever) (Retriever, error) {
	switch strategy {
	case StrategyStructured:
		return StructuredRetriever{}, nil
	case StrategyFuzzy:
		return FuzzyRetriever{}, nil
	case StrategySemantic:
		return SemanticRetriever{}, nil
	case StrategyRRFHybrid:
		return tuning, nil
	case StrategyProcessHybrid:
		return ProcessHybridRetriever{RrfHybridRetriever: tuning}, nil
	default:
		return nil, fmt.Errorf("retrieve: no retriever for strategy %q", strategy)
	}
}
