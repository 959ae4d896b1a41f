// Package mock provides a deterministic, in-memory embed.Embedder for tests
// of the Indexer and query engine that must not reach a real provider.
package mock

import (
	"context"
	"sync"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
)

var _ embed.Embedder = (*Embedder)(nil)

// Embedder returns a fixed-dimension, deterministic vector for any text it
// has not been told to fail on, and records every call it receives so tests
// can assert on call order and batching behavior.
type Embedder struct {
	mu sync.Mutex

	dimensions        int
	model             string
	maxTokens         int
	safeMarginPercent float64

	// FailTexts, when set, makes EmbedBatch/EmbedText return a nil vector
	// (not an error) for any text in this set, simulating §4.2's
	// per-text-failure contract.
	FailTexts map[string]bool

	// FailBatch, when true, makes every non-dry-run EmbedBatch call return an
	// error for the whole batch for as long as it stays set, simulating a
	// provider outage.
	FailBatch bool

	// Calls records every non-dry-run EmbedBatch invocation's input, in
	// order, for assertions on chunking/flush behavior.
	Calls [][]string
}

// New returns an Embedder producing vectors of the given dimensionality.
func New(dimensions int) *Embedder {
	return &Embedder{dimensions: dimensions, model: "mock-embedder", maxTokens: 8191, safeMarginPercent: 0.10}
}

// WithTokenBudget overrides the (maxTokens, safeMarginPercent) pair reported
// by TokenBudget, for tests exercising the Indexer's flush-threshold math.
func (e *Embedder) WithTokenBudget(maxTokens int, safeMarginPercent float64) *Embedder {
	e.maxTokens, e.safeMarginPercent = maxTokens, safeMarginPercent
	return e
}

// EmbedBatch implements embed.Embedder.
func (e *Embedder) EmbedBatch(_ context.Context, texts []string, dryRun bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if dryRun {
		return make([][]float32, len(texts)), nil
	}

	e.mu.Lock()
	if e.FailBatch {
		e.mu.Unlock()
		return nil, errBatchFailed
	}
	recorded := make([]string, len(texts))
	copy(recorded, texts)
	e.Calls = append(e.Calls, recorded)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.FailTexts[t] {
			continue
		}
		out[i] = deterministicVector(t, e.dimensions)
	}
	return out, nil
}

// EmbedText implements embed.Embedder.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, false)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions implements embed.Embedder.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelID implements embed.Embedder.
func (e *Embedder) ModelID() string { return e.model }

// TokenBudget implements embed.Embedder.
func (e *Embedder) TokenBudget() (int, float64) { return e.maxTokens, e.safeMarginPercent }

// deterministicVector derives a stable pseudo-embedding from text so
// equality assertions in tests don't need a real model.
func deterministicVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	seed := uint32(2166136261)
	for _, r := range text {
		seed = (seed ^ uint32(r)) * 16777619
	}
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000) / 1000.0
	}
	return v
}

type mockError string

func (e mockError) Error() string { return string(e) }

const errBatchFailed = mockError("mock embedder: simulated batch failure")
