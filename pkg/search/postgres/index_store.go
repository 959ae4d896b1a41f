package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/index"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// ExistingHashes implements index.Store. It returns entity_id → (path →
// content_hash) for every index_row belonging to one of ids under entityType.
func (s *Store) ExistingHashes(ctx context.Context, entityType model.EntityType, ids []string) (map[string]map[string]string, error) {
	result := map[string]map[string]string{}
	if len(ids) == 0 {
		return result, nil
	}

	const q = `
		SELECT entity_id, path, content_hash
		FROM   index_row
		WHERE  entity_type = $1 AND entity_id = ANY($2::uuid[])`

	rows, err := s.pool.Query(ctx, q, string(entityType), ids)
	if err != nil {
		return nil, fmt.Errorf("index store: existing hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, path, hash string
		if err := rows.Scan(&entityID, &path, &hash); err != nil {
			return nil, fmt.Errorf("index store: existing hashes: scan: %w", err)
		}
		byPath, ok := result[entityID]
		if !ok {
			byPath = map[string]string{}
			result[entityID] = byPath
		}
		byPath[path] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index store: existing hashes: %w", err)
	}
	return result, nil
}

// DeleteStalePaths implements index.Store, removing rows in sub-batches of
// batchSize so a large stale set never grows a single statement's parameter
// list without bound.
func (s *Store) DeleteStalePaths(ctx context.Context, entityType model.EntityType, stale []index.StalePath, batchSize int) error {
	if len(stale) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(stale)
	}

	const q = `DELETE FROM index_row WHERE entity_type = $1 AND entity_id = $2 AND path = $3`

	for start := 0; start < len(stale); start += batchSize {
		end := start + batchSize
		if end > len(stale) {
			end = len(stale)
		}
		batch := &pgx.Batch{}
		for _, sp := range stale[start:end] {
			batch.Queue(q, string(entityType), sp.EntityID, sp.Path)
		}
		br := s.pool.SendBatch(ctx, batch)
		for range stale[start:end] {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("index store: delete stale paths: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("index store: delete stale paths: %w", err)
		}
	}
	return nil
}

// UpsertRows implements index.Store. Each row is written with
// ON CONFLICT (entity_id, path) DO UPDATE.
func (s *Store) UpsertRows(ctx context.Context, rows []model.IndexRow) error {
	if len(rows) == 0 {
		return nil
	}

	const q = `
		INSERT INTO index_row (entity_id, entity_type, entity_title, path, value, value_type, content_hash, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (entity_id, path) DO UPDATE SET
		    entity_title = EXCLUDED.entity_title,
		    value        = EXCLUDED.value,
		    value_type   = EXCLUDED.value_type,
		    content_hash = EXCLUDED.content_hash,
		    embedding    = EXCLUDED.embedding,
		    indexed_at   = now()`

	batch := &pgx.Batch{}
	for _, r := range rows {
		var embedding any
		if r.HasEmbedding {
			embedding = pgvector.NewVector(r.Embedding)
		}
		batch.Queue(q, r.EntityID, string(r.EntityType), r.EntityTitle, r.Path, r.Value, string(r.ValueType), r.ContentHash, embedding)
	}

	br := s.pool.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("index store: upsert rows: %w", err)
		}
	}
	return br.Close()
}
