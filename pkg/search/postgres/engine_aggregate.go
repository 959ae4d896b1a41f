package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/format"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

// ExecuteCount runs a CountQuery (§4.4 "Simple count fast path" or grouped
// pivot) and splits each row into an AggregationResult.
func (e *Engine) ExecuteCount(ctx context.Context, q *query.CountQuery) ([]format.AggregationResult, error) {
	sql, err := compile.BuildCountQuery(q)
	if err != nil {
		return nil, err
	}
	return e.runGroupingQuery(ctx, sql)
}

// ExecuteAggregate runs an AggregateQuery (§3.1, §4.4) and splits each row
// into an AggregationResult.
func (e *Engine) ExecuteAggregate(ctx context.Context, q *query.AggregateQuery) ([]format.AggregationResult, error) {
	sql, err := compile.BuildAggregateQuery(q)
	if err != nil {
		return nil, err
	}
	return e.runGroupingQuery(ctx, sql)
}

func (e *Engine) runGroupingQuery(ctx context.Context, sql compile.CountSQL) ([]format.AggregationResult, error) {
	rows, err := e.store.pool.Query(ctx, sql.Statement, sql.Args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: grouping query: %w", err)
	}
	defer rows.Close()

	maps, err := scanRowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: grouping query: %w", err)
	}
	return format.BuildAggregationResults(sql, maps), nil
}

// ExecuteExport implements §4.9: it reuses the candidate CTE to select up to
// ExportQuery.Limit entity IDs, then fetches every indexed path for exactly
// those entities and pivots them client-side into one map per entity —
// export needs the complete entity projection, not the grouping/aggregation
// subset a CountSQL pivot produces.
func (e *Engine) ExecuteExport(ctx context.Context, q *query.ExportQuery) ([]map[string]any, error) {
	if err := e.validateFilters(ctx, q.EntityType, q.Filters); err != nil {
		return nil, err
	}

	candidate, err := compile.BuildCandidateCTE(q.EntityType, q.Filters)
	if err != nil {
		return nil, err
	}

	args := append([]any{}, candidate.Args...)
	limitPh := fmt.Sprintf("$%d", len(args)+1)
	args = append(args, q.Limit)

	idsSQL := fmt.Sprintf(
		"WITH candidate AS (\n%s\n)\nSELECT entity_id FROM candidate ORDER BY entity_id ASC LIMIT %s",
		candidate.Body, limitPh,
	)
	idRows, err := e.store.pool.Query(ctx, idsSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: export: select entity ids: %w", err)
	}
	ids, err := pgx.CollectRows(idRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: export: select entity ids: %w", err)
	}
	if len(ids) == 0 {
		return []map[string]any{}, nil
	}

	const fieldsSQL = `
		SELECT entity_id, entity_title, path, value
		FROM   index_row
		WHERE  entity_id = ANY($1::uuid[])
		ORDER  BY entity_id ASC, path ASC`

	fieldRows, err := e.store.pool.Query(ctx, fieldsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: engine: export: select fields: %w", err)
	}
	defer fieldRows.Close()

	byEntity := map[string]map[string]any{}
	order := make([]string, 0, len(ids))
	for fieldRows.Next() {
		var entityID, entityTitle, path, value string
		if err := fieldRows.Scan(&entityID, &entityTitle, &path, &value); err != nil {
			return nil, fmt.Errorf("postgres: engine: export: scan: %w", err)
		}
		row, ok := byEntity[entityID]
		if !ok {
			row = map[string]any{"entity_id": entityID, "entity_title": entityTitle}
			byEntity[entityID] = row
			order = append(order, entityID)
		}
		row[compile.SanitizeAlias(path)] = value
	}
	if err := fieldRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: engine: export: %w", err)
	}

	out := make([]map[string]any, 0, len(order))
	for _, id := range order {
		out = append(out, byEntity[id])
	}
	return out, nil
}

// scanRowsToMaps converts rows into one map[string]any per row, keyed by
// the statement's column names — used for the grouping-query result shape,
// whose columns are dynamic (grouping/aggregation aliases chosen per query).
func scanRowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f.Name)
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(values) {
				row[name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
