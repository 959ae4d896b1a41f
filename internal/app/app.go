// Package app wires all search core subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves health/readiness endpoints and blocks until
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithEngine, WithMCPHost). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/config"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/health"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp/mcphost"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/mcp/tools/searchtools"
	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/observe"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/index"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/postgres"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/retrieve"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/traverse"
)

// App owns all subsystem lifetimes and orchestrates the search core: the
// index pipeline, the query engine, the MCP tool surface, and the
// health/readiness HTTP endpoints.
type App struct {
	cfg      *config.Config
	embedder embed.Embedder

	// Subsystems — initialised in New, torn down in Shutdown.
	store    *postgres.Store
	engine   *postgres.Engine
	registry *traverse.Registry
	indexer  *index.Indexer
	mcpHost  mcp.Host
	metrics  *observe.Metrics
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of creating one from config.
func WithStore(s *postgres.Store) Option {
	return func(a *App) { a.store = s }
}

// WithEngine injects an engine instead of creating one from the store.
func WithEngine(e *postgres.Engine) Option {
	return func(a *App) { a.engine = e }
}

// WithMCPHost injects an MCP host instead of creating one from config.
func WithMCPHost(h mcp.Host) Option {
	return func(a *App) { a.mcpHost = h }
}

// WithTraverseRegistry injects a traverser registry instead of
// [traverse.NewDefaultRegistry].
func WithTraverseRegistry(r *traverse.Registry) Option {
	return func(a *App) { a.registry = r }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: the PostgreSQL index
// store, the query engine, the default traverser registry and indexer, the
// MCP host (with the search tool surface registered as builtins, plus any
// configured remote MCP servers), and the metrics/tracing providers.
//
// New performs all initialisation synchronously. embedder vectorizes both
// indexed field text and query text; it is provided by the caller since its
// construction depends on which embedding provider config.Embedding.Name
// names.
func New(ctx context.Context, cfg *config.Config, embedder embed.Embedder, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		embedder: embedder,
		metrics:  observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.initEngine()
	a.initIndexer()

	if err := a.initMCP(ctx); err != nil {
		return nil, fmt.Errorf("app: init mcp: %w", err)
	}

	a.initServer()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects to PostgreSQL unless a store was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Database.PostgresDSN
	if dsn == "" {
		return fmt.Errorf("database.postgres_dsn is required when no store is injected")
	}

	dims := a.cfg.Database.EmbeddingDimensions
	if dims == 0 {
		dims = 1536 // sensible default for OpenAI text-embedding-3-small
	}

	store, err := postgres.NewStore(ctx, dsn, dims)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initEngine builds the query engine over the store unless one was injected.
func (a *App) initEngine() {
	if a.engine != nil {
		return
	}
	rrf := retrieve.RrfHybridRetriever{
		K:                a.cfg.RRF.K,
		FieldCandidatesLimit: a.cfg.RRF.FieldCandidatesLimit,
		MarginFactor:     a.cfg.RRF.MarginFactor,
		PerfectThreshold: a.cfg.RRF.PerfectThreshold,
	}
	a.engine = postgres.NewEngine(a.store, a.embedder, rrf)
}

// initIndexer builds the default traverser registry and indexer unless a
// registry was injected.
func (a *App) initIndexer() {
	if a.registry == nil {
		a.registry = traverse.NewDefaultRegistry()
	}

	cfg := index.Config{
		ChunkSize:           a.cfg.Index.ChunkSize,
		MaxConcurrentChunks: a.cfg.Index.MaxConcurrentChunks,
		MaxBatchSize:        a.cfg.Index.MaxBatchSize,
		FallbackTokenBudget: a.cfg.Index.FallbackTokenBudget,
		ForceReindex:        a.cfg.Index.ForceReindex,
	}
	if cfg == (index.Config{}) {
		cfg = index.DefaultConfig()
	}
	a.indexer = index.New(a.registry, a.embedder, a.store, cfg)
}

// initMCP sets up the MCP host, registers the search tool surface as
// builtins, connects any configured remote servers, and calibrates.
func (a *App) initMCP(ctx context.Context) error {
	if a.mcpHost == nil {
		a.mcpHost = mcphost.New()
	}
	a.closers = append(a.closers, a.mcpHost.Close)

	host, ok := a.mcpHost.(*mcphost.Host)
	if ok {
		for _, t := range searchtools.Tools(a.engine, a.store) {
			if err := host.RegisterBuiltin(mcphost.BuiltinTool{
				Definition:  t.Definition,
				Handler:     t.Handler,
				DeclaredP50: t.DeclaredP50,
				DeclaredMax: t.DeclaredMax,
			}); err != nil {
				return fmt.Errorf("register builtin tool %q: %w", t.Definition.Name, err)
			}
		}
	}

	for _, srv := range a.cfg.MCP.Servers {
		serverCfg := mcp.ServerConfig{
			Name:      srv.Name,
			Transport: srv.Transport,
			Command:   srv.Command,
			URL:       srv.URL,
			Env:       srv.Env,
		}
		if err := a.mcpHost.RegisterServer(ctx, serverCfg); err != nil {
			return fmt.Errorf("register mcp server %q: %w", srv.Name, err)
		}
		slog.Info("registered MCP server", "name", srv.Name)
	}

	if err := a.mcpHost.Calibrate(ctx); err != nil {
		slog.Warn("MCP calibration failed, using declared latencies", "err", err)
	}

	return nil
}

// initServer builds the HTTP mux serving health/readiness checks behind the
// tracing/metrics middleware.
func (a *App) initServer() {
	mux := http.NewServeMux()

	checkers := []health.Checker{
		{Name: "database", Check: func(ctx context.Context) error { return a.store.Pool().Ping(ctx) }},
	}
	health.New(checkers...).Register(mux)

	a.server = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: observe.Middleware(a.metrics)(mux),
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Engine returns the query engine.
func (a *App) Engine() *postgres.Engine { return a.engine }

// Store returns the index store.
func (a *App) Store() *postgres.Store { return a.store }

// MCPHost returns the MCP host.
func (a *App) MCPHost() mcp.Host { return a.mcpHost }

// ─── Reindex ─────────────────────────────────────────────────────────────────

// Reindex runs one indexing pass over entities, tracking the run in the
// ActiveIndexRuns gauge and, on success, recording the number of entities
// passed in per entity type via RecordRowsIndexed. Callers outside this package are
// responsible for sourcing entities from their own domain data; the search
// core itself only indexes and queries, never originates entity data (§2,
// Non-goals: no write-side transactions on domain entities).
func (a *App) Reindex(ctx context.Context, entities []index.Entity) (int, error) {
	a.metrics.ActiveIndexRuns.Add(ctx, 1)
	defer a.metrics.ActiveIndexRuns.Add(ctx, -1)

	n, err := a.indexer.Run(ctx, entities)
	if err != nil {
		return n, err
	}

	byType := make(map[string]int64)
	for _, e := range entities {
		byType[string(e.Type)]++
	}
	for t, count := range byType {
		a.metrics.RecordRowsIndexed(ctx, t, count)
	}

	return n, nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the health/readiness HTTP server and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.server.Addr == "" {
		slog.Warn("no server.listen_addr configured, health endpoints disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("health server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("health server shutdown error", "err", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// shutdownTimeout bounds how long Run waits for the health server to drain
// in-flight requests when ctx is cancelled.
const shutdownTimeout = 5 * time.Second

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
