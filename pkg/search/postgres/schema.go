package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlExtensions installs every PostgreSQL extension the search core
// depends on: vector (pgvector, semantic retrieval), ltree (hierarchical
// label paths), pg_trgm (trigram fuzzy matching), unaccent (installed
// only; no query in this module calls unaccent()), and pgcrypto
// (gen_random_uuid used by query_id defaults).
const ddlExtensions = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS ltree;
CREATE EXTENSION IF NOT EXISTS pg_trgm;
CREATE EXTENSION IF NOT EXISTS unaccent;
CREATE EXTENSION IF NOT EXISTS pgcrypto;
`

// ddlIndexRow returns the flat EAV table DDL (§3.1, §3.2) with the
// embedding column's vector dimension baked in at migration time.
func ddlIndexRow(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS index_row (
    entity_id     UUID         NOT NULL,
    entity_type   TEXT         NOT NULL,
    entity_title  TEXT         NOT NULL,
    path          LTREE        NOT NULL,
    value         TEXT         NOT NULL,
    value_type    TEXT         NOT NULL,
    content_hash  TEXT         NOT NULL,
    embedding     vector(%d),
    indexed_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (entity_id, path)
);

CREATE INDEX IF NOT EXISTS idx_index_row_entity_type
    ON index_row (entity_type);

CREATE INDEX IF NOT EXISTS idx_index_row_path_gist
    ON index_row USING GIST (path);

CREATE INDEX IF NOT EXISTS idx_index_row_path_btree
    ON index_row (entity_type, path);

CREATE INDEX IF NOT EXISTS idx_index_row_value_trgm
    ON index_row USING GIN (value gin_trgm_ops);

CREATE INDEX IF NOT EXISTS idx_index_row_embedding_hnsw
    ON index_row USING hnsw (embedding vector_l2_ops);
`, embeddingDimensions)
}

// ddlSearchQueries backs page.Store: the persisted QueryState a PageCursor
// resolves to (§4.8, §6).
const ddlSearchQueries = `
CREATE TABLE IF NOT EXISTS search_queries (
    query_id           UUID         PRIMARY KEY DEFAULT gen_random_uuid(),
    entity_type        TEXT         NOT NULL,
    parameters         JSONB        NOT NULL,
    query_embedding     vector,
    retriever_strategy TEXT         NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_queries_created_at
    ON search_queries (created_at);
`

// Migrate installs the required extensions and creates the index_row and
// search_queries tables, idempotently. It does not create the domain
// tables (subscriptions, products, workflows, processes) the search core
// indexes from — those belong to the surrounding orchestrator schema and
// are assumed to already exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlExtensions,
		ddlIndexRow(embeddingDimensions),
		ddlSearchQueries,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
