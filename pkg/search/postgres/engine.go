package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/format"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/page"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/retrieve"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/validate"
)

// Engine wires the compiler, validator, router/retrievers, result formatter,
// and pagination store together against one Store, exposing the operations
// callers (the MCP tool surface, in particular) invoke: search, export,
// count, and aggregate (§3.1, §4.9).
type Engine struct {
	store    *Store
	embedder embed.Embedder
	rrf      retrieve.RrfHybridRetriever
}

// NewEngine constructs an Engine over store, using embedder to vectorize
// query text for semantic/RRF retrieval and rrf to tune the RRF/process-
// hybrid fusion (§4.6.4, §9). Pass the zero value to use the package
// defaults.
func NewEngine(store *Store, embedder embed.Embedder, rrf retrieve.RrfHybridRetriever) *Engine {
	return &Engine{store: store, embedder: embedder, rrf: rrf}
}

// SearchPage is one page of search results plus the cursor a caller should
// supply to fetch the next page, empty when no further rows remain.
type SearchPage struct {
	Results    []format.SearchResult
	NextCursor string
}

// ExecuteSearch runs a paginated SelectQuery (§3.1, §4.6-4.8). When
// cursorText is non-empty it resumes a prior query's ranking; otherwise it
// starts a new one and persists its QueryState so later pages stay
// consistent.
func (e *Engine) ExecuteSearch(ctx context.Context, q *query.SelectQuery, cursorText string) (SearchPage, error) {
	if cursorText != "" {
		return e.resumeSearch(ctx, q, cursorText)
	}
	return e.startSearch(ctx, q)
}

func (e *Engine) startSearch(ctx context.Context, q *query.SelectQuery) (SearchPage, error) {
	if err := e.validateFilters(ctx, q.EntityType, q.Filters); err != nil {
		return SearchPage{}, err
	}

	hasFilters := q.Filters != nil
	strategy := retrieve.Strategy(q.Retriever)
	if q.Retriever == query.RetrieverAuto {
		embeddingReady := q.QueryText != "" && retrieve.IsVectorizable(q.QueryText)
		strategy = retrieve.Route(q.EntityType, hasFilters, q.QueryText, embeddingReady)
	}

	queryEmbedding, err := e.resolveEmbedding(ctx, strategy, q.QueryText)
	if err != nil {
		return SearchPage{}, err
	}

	queryID := uuid.New()
	results, lastRow, err := e.runRetriever(ctx, q.EntityType, q.Filters, strategy, q.QueryText, queryEmbedding, nil, q.Limit)
	if err != nil {
		return SearchPage{}, err
	}

	state := page.QueryState{
		QueryID:           queryID,
		EntityType:        string(q.EntityType),
		Parameters:        q.SearchQuery,
		QueryEmbedding:    queryEmbedding,
		RetrieverStrategy: query.RetrieverStrategy(strategy),
	}
	if err := e.store.SaveQueryState(state); err != nil {
		return SearchPage{}, fmt.Errorf("postgres: engine: save query state: %w", err)
	}

	return SearchPage{Results: results, NextCursor: nextCursor(lastRow, results, queryID)}, nil
}

func (e *Engine) resumeSearch(ctx context.Context, q *query.SelectQuery, cursorText string) (SearchPage, error) {
	cursor, err := page.Decode(cursorText)
	if err != nil {
		return SearchPage{}, err
	}
	state, err := e.store.LoadQueryState(cursor.QueryID)
	if err != nil {
		return SearchPage{}, err
	}

	strategy := retrieve.Strategy(state.RetrieverStrategy)
	results, lastRow, err := e.runRetriever(ctx, q.EntityType, state.Parameters.Filters, strategy, state.Parameters.QueryText, state.QueryEmbedding, &cursor, q.Limit)
	if err != nil {
		return SearchPage{}, err
	}

	return SearchPage{Results: results, NextCursor: nextCursor(lastRow, results, cursor.QueryID)}, nil
}

// resolveEmbedding vectorizes queryText when strategy needs semantic input
// and queryText is eligible (not a bare UUID, per retrieve.IsVectorizable).
func (e *Engine) resolveEmbedding(ctx context.Context, strategy retrieve.Strategy, queryText string) ([]float32, error) {
	if !strategyNeedsEmbedding(strategy) || queryText == "" || !retrieve.IsVectorizable(queryText) {
		return nil, nil
	}
	vec, err := e.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: embed query text: %w", err)
	}
	return vec, nil
}

func strategyNeedsEmbedding(s retrieve.Strategy) bool {
	switch s {
	case retrieve.StrategySemantic, retrieve.StrategyRRFHybrid, retrieve.StrategyProcessHybrid:
		return true
	default:
		return false
	}
}

// validateFilters discovers this entity type's known paths and runs the
// validator, using Store itself as the LtreeCaster (§6).
func (e *Engine) validateFilters(ctx context.Context, entityType model.EntityType, tree filter.Tree) error {
	if tree == nil {
		return nil
	}
	paths, err := compile.DiscoverPaths(ctx, e.store, entityType)
	if err != nil {
		return err
	}
	return validate.Validate(ctx, entityType, tree, validate.PathsByKind(paths), e.store)
}

// runRetriever builds the candidate CTE, dispatches to the chosen strategy's
// retriever (or returns an empty result set for StrategyEmpty), and converts
// rows to formatted results. lastRow is the zero value when no rows came
// back.
func (e *Engine) runRetriever(
	ctx context.Context,
	entityType model.EntityType,
	filters filter.Tree,
	strategy retrieve.Strategy,
	queryText string,
	queryEmbedding []float32,
	cursor *page.PageCursor,
	limit int,
) ([]format.SearchResult, retrieve.Row, error) {
	if strategy == retrieve.StrategyEmpty {
		return []format.SearchResult{}, retrieve.Row{}, nil
	}

	candidate, err := compile.BuildCandidateCTE(entityType, filters)
	if err != nil {
		return nil, retrieve.Row{}, err
	}

	retriever, err := retrieve.ForTuned(strategy, e.rrf)
	if err != nil {
		return nil, retrieve.Row{}, err
	}

	cq := retrieve.CandidateQuery{
		EntityType:     entityType,
		QueryText:      queryText,
		QueryEmbedding: queryEmbedding,
		Cursor:         cursor,
		Limit:          limit,
	}
	rows, err := retriever.Apply(ctx, e.store.pool, candidate, cq)
	if err != nil {
		return nil, retrieve.Row{}, fmt.Errorf("postgres: engine: apply retriever: %w", err)
	}

	results := make([]format.SearchResult, len(rows))
	for i, r := range rows {
		results[i] = format.BuildSearchResult(r, entityType, queryText)
	}

	var lastRow retrieve.Row
	if len(rows) > 0 {
		lastRow = rows[len(rows)-1]
	}
	return results, lastRow, nil
}

// nextCursor encodes the resume point for the next page, or "" when this
// page came back empty (nothing further to resume from).
func nextCursor(lastRow retrieve.Row, results []format.SearchResult, queryID uuid.UUID) string {
	if len(results) == 0 {
		return ""
	}
	cursor := page.PageCursor{Score: lastRow.Score, ID: lastRow.EntityID.String(), QueryID: queryID}
	encoded, err := cursor.Encode()
	if err != nil {
		return ""
	}
	return encoded
}
