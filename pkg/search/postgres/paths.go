package postgres

import (
	"context"
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// DistinctPaths implements compile.PathStore, backing §4.4's schema/path
// discovery directly off the live index_row table rather than a separate
// schema registry.
func (s *Store) DistinctPaths(ctx context.Context, entityType model.EntityType) ([]compile.PathInfo, error) {
	const q = `
		SELECT DISTINCT path, value_type
		FROM   index_row
		WHERE  entity_type = $1
		ORDER  BY path ASC`

	rows, err := s.pool.Query(ctx, q, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("postgres: distinct paths: %w", err)
	}
	defer rows.Close()

	var paths []compile.PathInfo
	for rows.Next() {
		var path, valueType string
		if err := rows.Scan(&path, &valueType); err != nil {
			return nil, fmt.Errorf("postgres: distinct paths: scan: %w", err)
		}
		paths = append(paths, compile.PathInfo{Path: path, ValueType: model.FieldKind(valueType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: distinct paths: %w", err)
	}
	return paths, nil
}
