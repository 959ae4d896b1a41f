// Package searchtools exposes the search core's read-only operations as
// built-in MCP tools, each a [tools.Tool] ready for registration with the
// MCP host.
//
// Four tools are exported via [Tools]:
//   - "execute_search"      — paginated hybrid search (§3.1, §4.6-4.8).
//   - "execute_aggregation" — grouped counts/aggregations (§3.1, §4.4).
//   - "execute_export"      — unpaginated bulk search (§3.1, §4.9).
//   - "list_paths"          — discover valid filter paths for an entity type.
//
// All handlers are read-only and safe for concurrent use; they delegate
// directly to a [postgres.Engine] and [postgres.Store] supplied at
// construction time.
package searchtools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp/tools"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/provider/llm"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/postgres"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

// declaredSearchP50Ms and declaredSearchMaxMs are the latency estimates
// advertised for execute_search / execute_export, which run a full retriever
// pass (structured filter, trigram, or pgvector similarity, possibly RRF
// fused). declaredFastP50Ms covers list_paths, a single metadata query.
const (
	declaredSearchP50Ms = 150
	declaredSearchMaxMs = 2000
	declaredFastP50Ms   = 20
	declaredFastMaxMs   = 200
)

// executeSearchArgs is the JSON-decoded input for the "execute_search" tool.
type executeSearchArgs struct {
	EntityType string          `json:"entity_type"`
	Filters    json.RawMessage `json:"filters,omitempty"`
	QueryText  string          `json:"query_text,omitempty"`
	Retriever  string          `json:"retriever,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Cursor     string          `json:"cursor,omitempty"`
}

// executeExportArgs is the JSON-decoded input for the "execute_export" tool.
type executeExportArgs struct {
	EntityType string          `json:"entity_type"`
	Filters    json.RawMessage `json:"filters,omitempty"`
	QueryText  string          `json:"query_text,omitempty"`
	Retriever  string          `json:"retriever,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// temporalGroupingArgs mirrors query.TemporalGrouping for JSON decoding.
type temporalGroupingArgs struct {
	Field  string `json:"field"`
	Period string `json:"period"`
}

// aggregationArgs mirrors query.Aggregation for JSON decoding.
type aggregationArgs struct {
	Op    string `json:"op"`
	Alias string `json:"alias"`
	Field string `json:"field,omitempty"`
}

// executeAggregationArgs is the JSON-decoded input for the
// "execute_aggregation" tool. When Aggregations is empty the tool runs a
// plain count (§4.4 "Simple count fast path"); otherwise it runs a full
// aggregate query.
type executeAggregationArgs struct {
	EntityType      string                 `json:"entity_type"`
	Filters         json.RawMessage        `json:"filters,omitempty"`
	GroupBy         []string               `json:"group_by,omitempty"`
	TemporalGroupBy []temporalGroupingArgs `json:"temporal_group_by,omitempty"`
	OrderBy         string                 `json:"order_by,omitempty"`
	Cumulative      bool                   `json:"cumulative,omitempty"`
	Aggregations    []aggregationArgs      `json:"aggregations,omitempty"`
}

// listPathsArgs is the JSON-decoded input for the "list_paths" tool.
type listPathsArgs struct {
	EntityType string `json:"entity_type"`
}

// buildSearchQuery decodes the shared SearchQuery fields from execute_search
// / execute_export arguments.
func buildSearchQuery(entityType, queryText, retriever string, filtersJSON json.RawMessage, limit int) (query.SearchQuery, error) {
	if entityType == "" {
		return query.SearchQuery{}, fmt.Errorf("searchtools: entity_type must not be empty")
	}
	sq := query.SearchQuery{
		EntityType: model.EntityType(entityType),
		QueryText:  queryText,
		Retriever:  query.RetrieverStrategy(retriever),
		Limit:      limit,
	}
	if len(filtersJSON) > 0 {
		tree, err := postgres.DecodeFilterTreeJSON(filtersJSON)
		if err != nil {
			return query.SearchQuery{}, fmt.Errorf("searchtools: invalid filters: %w", err)
		}
		sq.Filters = tree
	}
	return sq, nil
}

// executeSearchHandler implements the "execute_search" tool.
func executeSearchHandler(engine *postgres.Engine) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a executeSearchArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("searchtools: failed to parse arguments: %w", err)
		}
		sq, err := buildSearchQuery(a.EntityType, a.QueryText, a.Retriever, a.Filters, a.Limit)
		if err != nil {
			return "", err
		}
		sel, err := query.NewSelectQuery(sq.EntityType, sq.Limit)
		if err != nil {
			return "", fmt.Errorf("searchtools: %w", err)
		}
		sel.Filters = sq.Filters
		sel.QueryText = sq.QueryText
		sel.Retriever = sq.Retriever

		page, err := engine.ExecuteSearch(ctx, sel, a.Cursor)
		if err != nil {
			return "", fmt.Errorf("searchtools: execute_search: %w", err)
		}
		res, err := json.Marshal(page)
		if err != nil {
			return "", fmt.Errorf("searchtools: failed to encode result: %w", err)
		}
		return string(res), nil
	}
}

// executeExportHandler implements the "execute_export" tool.
func executeExportHandler(engine *postgres.Engine) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a executeExportArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("searchtools: failed to parse arguments: %w", err)
		}
		sq, err := buildSearchQuery(a.EntityType, a.QueryText, a.Retriever, a.Filters, a.Limit)
		if err != nil {
			return "", err
		}
		exp, err := query.NewExportQuery(sq.EntityType, sq.Limit)
		if err != nil {
			return "", fmt.Errorf("searchtools: %w", err)
		}
		exp.Filters = sq.Filters
		exp.QueryText = sq.QueryText
		exp.Retriever = sq.Retriever

		rows, err := engine.ExecuteExport(ctx, exp)
		if err != nil {
			return "", fmt.Errorf("searchtools: execute_export: %w", err)
		}
		res, err := json.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("searchtools: failed to encode result: %w", err)
		}
		return string(res), nil
	}
}

// buildGroupingQuery decodes the shared GroupingQuery fields from
// execute_aggregation arguments.
func buildGroupingQuery(a executeAggregationArgs) (query.GroupingQuery, error) {
	if a.EntityType == "" {
		return query.GroupingQuery{}, fmt.Errorf("searchtools: entity_type must not be empty")
	}
	gq := query.GroupingQuery{
		EntityType: model.EntityType(a.EntityType),
		GroupBy:    a.GroupBy,
		OrderBy:    a.OrderBy,
		Cumulative: a.Cumulative,
	}
	for _, t := range a.TemporalGroupBy {
		gq.TemporalGroupBy = append(gq.TemporalGroupBy, query.TemporalGrouping{
			Field:  t.Field,
			Period: query.TemporalPeriod(t.Period),
		})
	}
	if len(a.Filters) > 0 {
		tree, err := postgres.DecodeFilterTreeJSON(a.Filters)
		if err != nil {
			return query.GroupingQuery{}, fmt.Errorf("searchtools: invalid filters: %w", err)
		}
		gq.Filters = tree
	}
	return gq, nil
}

// executeAggregationHandler implements the "execute_aggregation" tool. It
// routes to [postgres.Engine.ExecuteCount] when no aggregations are
// requested, and [postgres.Engine.ExecuteAggregate] otherwise.
func executeAggregationHandler(engine *postgres.Engine) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a executeAggregationArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("searchtools: failed to parse arguments: %w", err)
		}
		gq, err := buildGroupingQuery(a)
		if err != nil {
			return "", err
		}

		var results []byte
		if len(a.Aggregations) == 0 {
			out, err := engine.ExecuteCount(ctx, &query.CountQuery{GroupingQuery: gq})
			if err != nil {
				return "", fmt.Errorf("searchtools: execute_aggregation (count): %w", err)
			}
			results, err = json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("searchtools: failed to encode result: %w", err)
			}
		} else {
			aggs := make([]query.Aggregation, 0, len(a.Aggregations))
			for _, agg := range a.Aggregations {
				aggs = append(aggs, query.Aggregation{
					Op:    query.AggregationOp(agg.Op),
					Alias: agg.Alias,
					Field: agg.Field,
				})
			}
			aq := &query.AggregateQuery{GroupingQuery: gq, Aggregations: aggs}
			if err := aq.Validate(); err != nil {
				return "", fmt.Errorf("searchtools: %w", err)
			}
			out, err := engine.ExecuteAggregate(ctx, aq)
			if err != nil {
				return "", fmt.Errorf("searchtools: execute_aggregation: %w", err)
			}
			results, err = json.Marshal(out)
			if err != nil {
				return "", fmt.Errorf("searchtools: failed to encode result: %w", err)
			}
		}
		return string(results), nil
	}
}

// listPathsHandler implements the "list_paths" tool.
func listPathsHandler(store *postgres.Store) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a listPathsArgs
		if err := json.Unmarshal([]byte(args), &a); err != nil {
			return "", fmt.Errorf("searchtools: failed to parse arguments: %w", err)
		}
		if a.EntityType == "" {
			return "", fmt.Errorf("searchtools: entity_type must not be empty")
		}
		paths, err := compile.DiscoverPaths(ctx, store, model.EntityType(a.EntityType))
		if err != nil {
			return "", fmt.Errorf("searchtools: list_paths: %w", err)
		}
		res, err := json.Marshal(paths)
		if err != nil {
			return "", fmt.Errorf("searchtools: failed to encode result: %w", err)
		}
		return string(res), nil
	}
}

// Tools returns the slice of built-in search-core tools ready for
// registration with the MCP Host. engine serves execute_search,
// execute_aggregation, and execute_export; store (the engine's own backing
// store) serves list_paths.
func Tools(engine *postgres.Engine, store *postgres.Store) []tools.Tool {
	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "execute_search",
				Description: "Run a paginated hybrid search over indexed entities. Supports structured filters, free-text query, and an optional retriever override; returns ranked results with a cursor for the next page.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity_type": map[string]any{"type": "string", "description": "Entity type to search."},
						"filters":     map[string]any{"type": "object", "description": "Optional filter tree (discriminated-union JSON envelope)."},
						"query_text":  map[string]any{"type": "string", "description": "Optional free-text query for fuzzy/semantic/RRF retrieval."},
						"retriever":   map[string]any{"type": "string", "enum": []string{"", "STRUCTURED", "FUZZY", "SEMANTIC", "RRF_HYBRID"}, "description": "Explicit retriever override; empty selects automatically."},
						"limit":       map[string]any{"type": "integer", "description": "Page size, 1-30, default 10."},
						"cursor":      map[string]any{"type": "string", "description": "Opaque cursor from a prior page's next_cursor."},
					},
					"required": []string{"entity_type"},
				},
				EstimatedDurationMs: declaredSearchP50Ms,
				MaxDurationMs:       declaredSearchMaxMs,
				Idempotent:          true,
				CacheableSeconds:    0,
			},
			Handler:     executeSearchHandler(engine),
			DeclaredP50: declaredSearchP50Ms,
			DeclaredMax: declaredSearchMaxMs,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "execute_aggregation",
				Description: "Run a grouped count or aggregation (sum/avg/min/max) over indexed entities, with optional structured filters and temporal bucketing.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity_type":       map[string]any{"type": "string"},
						"filters":           map[string]any{"type": "object"},
						"group_by":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"temporal_group_by": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
						"order_by":          map[string]any{"type": "string"},
						"cumulative":        map[string]any{"type": "boolean"},
						"aggregations":      map[string]any{"type": "array", "items": map[string]any{"type": "object"}, "description": "Omit for a plain count."},
					},
					"required": []string{"entity_type"},
				},
				EstimatedDurationMs: declaredSearchP50Ms,
				MaxDurationMs:       declaredSearchMaxMs,
				Idempotent:          true,
				CacheableSeconds:    0,
			},
			Handler:     executeAggregationHandler(engine),
			DeclaredP50: declaredSearchP50Ms,
			DeclaredMax: declaredSearchMaxMs,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "execute_export",
				Description: "Run an unpaginated bulk search (up to 10000 rows) over indexed entities. Intended for data export, not interactive use.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity_type": map[string]any{"type": "string"},
						"filters":     map[string]any{"type": "object"},
						"query_text":  map[string]any{"type": "string"},
						"retriever":   map[string]any{"type": "string"},
						"limit":       map[string]any{"type": "integer", "description": "1-10000, default 1000."},
					},
					"required": []string{"entity_type"},
				},
				EstimatedDurationMs: declaredSearchP50Ms,
				MaxDurationMs:       declaredSearchMaxMs * 5,
				Idempotent:          true,
				CacheableSeconds:    0,
			},
			Handler:     executeExportHandler(engine),
			DeclaredP50: declaredSearchP50Ms,
			DeclaredMax: declaredSearchMaxMs * 5,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "list_paths",
				Description: "Discover the distinct field paths and value types indexed for an entity type, for building valid filter trees.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity_type": map[string]any{"type": "string"},
					},
					"required": []string{"entity_type"},
				},
				EstimatedDurationMs: declaredFastP50Ms,
				MaxDurationMs:       declaredFastMaxMs,
				Idempotent:          true,
				CacheableSeconds:    60,
			},
			Handler:     listPathsHandler(store),
			DeclaredP50: declaredFastP50Ms,
			DeclaredMax: declaredFastMaxMs,
		},
	}
}
