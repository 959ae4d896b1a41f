// Package observe provides application-wide observability primitives for the
// search core: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter that registers them with the default
// Prometheus registry; this package does not serve an HTTP endpoint for
// them. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all search-core metrics.
const meterName = "github.com/workfloworchestrator/orchestrator-core-sub001"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// IndexChunkDuration tracks how long one chunked indexing pass takes (§4.5).
	IndexChunkDuration metric.Float64Histogram

	// EmbedBatchDuration tracks embedding-provider batch call latency (§4.2).
	EmbedBatchDuration metric.Float64Histogram

	// QueryCompileDuration tracks compiling a filter tree into SQL (§4.3/§4.4).
	QueryCompileDuration metric.Float64Histogram

	// RetrieverDuration tracks retriever execution latency. Use with attribute:
	//   attribute.String("strategy", ...)
	RetrieverDuration metric.Float64Histogram

	// ToolExecutionDuration tracks MCP tool execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// --- Counters ---

	// RowsIndexed counts index_row upserts. Use with attribute:
	//   attribute.String("entity_type", ...)
	RowsIndexed metric.Int64Counter

	// RowsDeleted counts stale index_row deletes. Use with attribute:
	//   attribute.String("entity_type", ...)
	RowsDeleted metric.Int64Counter

	// SearchesExecuted counts ExecuteSearch calls. Use with attribute:
	//   attribute.String("strategy", ...)
	SearchesExecuted metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// --- Error counters ---

	// EmbedErrors counts embedding-provider failures.
	EmbedErrors metric.Int64Counter

	// RetrieverErrors counts retriever execution failures. Use with attribute:
	//   attribute.String("strategy", ...)
	RetrieverErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveIndexRuns tracks the number of concurrently running Indexer.Run calls.
	ActiveIndexRuns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// both fast single-row retrievals and slow full-corpus indexing passes.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.IndexChunkDuration, err = m.Float64Histogram("search.index.chunk.duration",
		metric.WithDescription("Latency of one chunked indexing pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbedBatchDuration, err = m.Float64Histogram("search.embed.batch.duration",
		metric.WithDescription("Latency of an embedding provider batch call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryCompileDuration, err = m.Float64Histogram("search.query.compile.duration",
		metric.WithDescription("Latency of compiling a filter tree into SQL."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrieverDuration, err = m.Float64Histogram("search.retriever.duration",
		metric.WithDescription("Latency of retriever execution by strategy."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("search.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.RowsIndexed, err = m.Int64Counter("search.index.rows_indexed",
		metric.WithDescription("Total index_row upserts by entity type."),
	); err != nil {
		return nil, err
	}
	if met.RowsDeleted, err = m.Int64Counter("search.index.rows_deleted",
		metric.WithDescription("Total stale index_row deletes by entity type."),
	); err != nil {
		return nil, err
	}
	if met.SearchesExecuted, err = m.Int64Counter("search.query.searches_executed",
		metric.WithDescription("Total ExecuteSearch calls by retriever strategy."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("search.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.EmbedErrors, err = m.Int64Counter("search.embed.errors",
		metric.WithDescription("Total embedding provider failures."),
	); err != nil {
		return nil, err
	}
	if met.RetrieverErrors, err = m.Int64Counter("search.retriever.errors",
		metric.WithDescription("Total retriever execution failures by strategy."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveIndexRuns, err = m.Int64UpDownCounter("search.index.active_runs",
		metric.WithDescription("Number of concurrently running indexing passes."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("search.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSearchExecuted is a convenience method that records a search counter
// increment with the retriever strategy that served it.
func (m *Metrics) RecordSearchExecuted(ctx context.Context, strategy string) {
	m.SearchesExecuted.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordRetrieverError is a convenience method that records a retriever
// error counter increment.
func (m *Metrics) RecordRetrieverError(ctx context.Context, strategy string) {
	m.RetrieverErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordRowsIndexed is a convenience method that records an index_row
// upsert-count increment for entityType.
func (m *Metrics) RecordRowsIndexed(ctx context.Context, entityType string, n int64) {
	m.RowsIndexed.Add(ctx, n, metric.WithAttributes(attribute.String("entity_type", entityType)))
}

// RecordEmbedError is a convenience method that records an embedding
// provider failure.
func (m *Metrics) RecordEmbedError(ctx context.Context) {
	m.EmbedErrors.Add(ctx, 1)
}
