// Package index implements the chunked differential indexing pipeline
// (§4.5): traverse entities, diff against stored content hashes, batch
// embeddable fields within a token budget, and upsert index_row rows.
package index

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/traverse"
)

// charsPerToken is the heuristic ratio used to estimate token counts for the
// embedding-batch budget, avoiding a dedicated tokenizer dependency — English
// text averages roughly 4 characters per token across common embedding
// models.
const charsPerToken = 4

// defaultChunkSize is the number of entities buffered per indexing
// transaction (§4.5).
const defaultChunkSize = 1000

// defaultFallbackTokenBudget is the default Config.FallbackTokenBudget. It is
// zero, so when the Embedder reports no known context window and the caller
// has not configured a fallback, Run refuses to index.
const defaultFallbackTokenBudget = 0

// Entity is one unit of work handed to the Indexer: an entity identity plus
// the Dumper the Traverser walks to extract its fields.
type Entity struct {
	ID     string
	Type   model.EntityType
	Title  string
	Dumper traverse.Dumper
}

// Store is the persistence collaborator the Indexer writes through. A
// postgres.Store satisfies this (kept minimal so the indexer package never
// imports pgx directly).
type Store interface {
	// ExistingHashes returns entity_id → (path → content_hash) for every index_row whose
	// entity_id is in ids and entity_type matches entityType. Returns an
	// empty map (not nil) rather than an error when ids is empty.
	ExistingHashes(ctx context.Context, entityType model.EntityType, ids []string) (map[string]map[string]string, error)

	// DeleteStalePaths removes index_row rows for the given entity/path
	// pairs, in sub-batches bounded by batchSize.
	DeleteStalePaths(ctx context.Context, entityType model.EntityType, stale []StalePath, batchSize int) error

	// UpsertRows writes rows with ON CONFLICT (entity_id, path) DO UPDATE.
	UpsertRows(ctx context.Context, rows []model.IndexRow) error
}

// StalePath identifies one index_row present in storage but absent from the
// latest traversal of its owning entity.
type StalePath struct {
	EntityID string
	Path     string
}

// Config tunes the Indexer's chunking, concurrency, and token-budget
// behavior (§4.5, §9).
type Config struct {
	ChunkSize           int
	MaxConcurrentChunks int
	MaxBatchSize        int // only enforced when > 0 (self-hosted embedders)
	FallbackTokenBudget int // used when the Embedder reports maxTokens == 0
	ForceReindex        bool
}

// DefaultConfig returns the §4.5 defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           defaultChunkSize,
		MaxConcurrentChunks: 4,
		FallbackTokenBudget: defaultFallbackTokenBudget,
	}
}

// Indexer runs the differential indexing pipeline over a registry of
// Traversers, using an Embedder for embeddable fields and a Store for
// persistence.
type Indexer struct {
	registry *traverse.Registry
	embedder embed.Embedder
	store    Store
	cfg      Config
}

// New constructs an Indexer.
func New(registry *traverse.Registry, embedder embed.Embedder, store Store, cfg Config) *Indexer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 1
	}
	return &Indexer{registry: registry, embedder: embedder, store: store, cfg: cfg}
}

// Run streams entities, buffers them into chunks of cfg.ChunkSize, and
// processes each chunk (§4.5). It returns the number of entities processed.
// Independent chunks are processed concurrently up to MaxConcurrentChunks,
// since disjoint entity_id sets require no coordination. entities must all
// share the same EntityType; index one entity type per Run call.
func (ix *Indexer) Run(ctx context.Context, entities []Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	budget, err := ix.tokenBudget()
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.MaxConcurrentChunks)

	var processed atomic.Int64
	for start := 0; start < len(entities); start += ix.cfg.ChunkSize {
		end := start + ix.cfg.ChunkSize
		if end > len(entities) {
			end = len(entities)
		}
		chunk := entities[start:end]
		g.Go(func() error {
			n, err := ix.processChunk(gctx, chunk, budget)
			if err != nil {
				return err
			}
			processed.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("index: run: %w", err)
	}
	return int(processed.Load()), nil
}

// tokenBudget computes budget = max_tokens(model) - max_tokens(model)*margin
// (§4.5). If the Embedder reports no known context window, it falls back to
// cfg.FallbackTokenBudget; if that is also unset, indexing is refused.
func (ix *Indexer) tokenBudget() (int, error) {
	maxTokens, margin := ix.embedder.TokenBudget()
	if maxTokens > 0 {
		return maxTokens - int(float64(maxTokens)*margin), nil
	}
	if ix.cfg.FallbackTokenBudget > 0 {
		return ix.cfg.FallbackTokenBudget, nil
	}
	return 0, fmt.Errorf("index: embedder %q reports no known token budget and no fallback is configured", ix.embedder.ModelID())
}

// processChunk runs the per-chunk algorithm described in §4.5 steps 1-5
// inside a single logical unit of work.
func (ix *Indexer) processChunk(ctx context.Context, chunk []Entity, tokenBudget int) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	entityType := chunk[0].Type

	existing := map[string]map[string]string{}
	if !ix.cfg.ForceReindex {
		ids := make([]string, len(chunk))
		for i, e := range chunk {
			ids[i] = e.ID
		}
		var err error
		existing, err = ix.store.ExistingHashes(ctx, entityType, ids)
		if err != nil {
			return 0, fmt.Errorf("index: fetch existing hashes: %w", err)
		}
	}

	var stale []StalePath
	batch := newFlushBatch(ix.embedder, tokenBudget, ix.cfg.MaxBatchSize, ix.store)

	for _, e := range chunk {
		fields, err := ix.registry.For(e.Type)
		if err != nil {
			return 0, fmt.Errorf("index: resolve traverser: %w", err)
		}
		cfg, ok := model.DefaultEntityConfigs[e.Type]
		if !ok {
			return 0, fmt.Errorf("index: no entity config registered for %s", e.Type)
		}
		// rootName must be lowercase: stored index_row.path values are rooted
		// here, and every query-side consumer (validate.go's entity-prefix
		// check, the filter compiler, DiscoverPaths) expects the
		// lowercase "<entity_type>." prefix, not model.EntityType's
		// uppercase string form.
		extracted, err := fields.GetFields(ctx, e.Dumper, cfg.PKName, cfg.RootLabel)
		if err != nil {
			return 0, fmt.Errorf("index: traverse entity %s: %w", e.ID, err)
		}

		entityID, err := uuid.Parse(e.ID)
		if err != nil {
			return 0, fmt.Errorf("index: entity %s has an invalid id: %w", e.ID, err)
		}

		seenPaths := make(map[string]bool, len(extracted))
		existingForEntity := existing[e.ID]
		for _, f := range extracted {
			seenPaths[f.Path] = true
			hash := model.ComputeContentHash(f.Path, f.Value, f.Kind, e.Title)
			if existingForEntity[f.Path] == hash {
				continue // identical, skip
			}
			if err := batch.add(ctx, e, f, entityID); err != nil {
				return 0, err
			}
		}
		for path := range existingForEntity {
			if !seenPaths[path] {
				stale = append(stale, StalePath{EntityID: e.ID, Path: path})
			}
		}
	}

	if err := batch.flushAll(ctx); err != nil {
		return 0, err
	}

	if len(stale) > 0 {
		if err := ix.store.DeleteStalePaths(ctx, entityType, stale, ix.cfg.ChunkSize); err != nil {
			return 0, fmt.Errorf("index: delete stale paths: %w", err)
		}
	}

	return len(chunk), nil
}

// estimateTokens returns a rough token count for "path: value" text using
// the 1-token-per-4-characters heuristic, matching §4.5's tokenize step
// without a dedicated tokenizer dependency.
func estimateTokens(path, value string) int {
	chars := len(path) + len(": ") + len(value)
	tokens := chars / charsPerToken
	if tokens == 0 && chars > 0 {
		tokens = 1
	}
	return tokens
}
