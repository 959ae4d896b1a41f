// Package postgres provides the PostgreSQL-backed implementation of the
// hybrid search core's storage seams: index.Store (indexer persistence),
// compile.PathStore (schema discovery), page.Store (query-state
// persistence), validate.LtreeCaster (ltree pattern pre-validation), and
// the engine operations (ExecuteSearch/ExecuteExport/ExecuteCount/
// ExecuteAggregate) that tie the compiler, retrievers, and pagination
// together against a live database.
//
// All of these concerns share a single [pgxpool.Pool]: one pool,
// pgvector types registered via AfterConnect, Migrate run at construction
// time.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Store is the central PostgreSQL-backed collaborator for the search core.
// It implements index.Store, compile.PathStore, page.Store, and
// validate.LtreeCaster directly on *Store so callers can pass one value
// wherever any of those seams is expected; Engine wraps it to run full
// search/export/aggregate operations.
//
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool to dsn, registers pgvector types on
// every connection, and runs Migrate to ensure the index_row/search_queries
// tables and required extensions exist.
//
// embeddingDimensions must match the configured Embedder's output
// dimension; changing it later requires a manual schema migration.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for callers that need to run a
// retriever or an ad-hoc statement directly (e.g. Engine).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases every connection held by the pool.
func (s *Store) Close() { s.pool.Close() }
