// Package embed defines the Embedder contract (§4.2, §6): batched,
// token-budgeted text→vector calls consumed by the Indexer and, for
// single-text query embedding, by the query engine. It is an external,
// swappable collaborator interface, generalized with the token-budget
// accessor the Indexer needs for §4.5's chunked upsert algorithm.
package embed

import "context"

// Embedder is the external collaborator consumed by the Indexer and query
// engine. Implementations must be safe for concurrent use and must preserve
// input order in EmbedBatch.
type Embedder interface {
	// EmbedBatch computes embeddings for texts in one provider call.
	// On a whole-batch failure it returns a nil slice and a non-nil error;
	// callers must not assume partial results. On success the returned slice
	// has exactly len(texts) entries, in the same order; an individual
	// per-text failure yields a nil entry (not an error) at that index,
	// matching §4.2: "Returns empty vectors on per-text failure; returns
	// empty list on batch failure."
	//
	// dryRun, when true, skips the network call and returns nil vectors for
	// every text — used by callers that only need to validate/tokenize input
	// without spending embedding budget.
	EmbedBatch(ctx context.Context, texts []string, dryRun bool) ([][]float32, error)

	// EmbedText computes the embedding for a single string, used by the query
	// engine to vectorize query_text. Returns a nil vector (not an error)
	// when embedding fails for this text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed length of every embedding vector produced
	// by this Embedder.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, used for
	// logging and token-budget lookup (§4.5).
	ModelID() string

	// TokenBudget returns (maxTokens, safeMarginPercent) for this model, used
	// by the Indexer to compute its flush threshold (§4.5). maxTokens == 0
	// means the model's context window is unknown to this Embedder; the
	// Indexer then falls back to its configured budget.
	TokenBudget() (maxTokens int, safeMarginPercent float64)
}
