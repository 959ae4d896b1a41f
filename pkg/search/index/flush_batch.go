package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// pendingField is one upsert candidate awaiting its turn through the
// embeddable/non-embeddable split described in §4.5 step 4.
type pendingField struct {
	row  model.IndexRow
	text string // "path: value", only populated for embeddable fields
}

// flushBatch accumulates upsert rows for one chunk, splitting embeddable
// STRING fields into a token-budgeted buffer and flushing to the Store when
// the running token sum would exceed the budget, or when the configured
// max batch size (self-hosted embedders only) would be exceeded.
type flushBatch struct {
	embedder    embed.Embedder
	tokenBudget int
	maxBatch    int
	store       Store

	embeddable    []pendingField
	embeddableSum int
	nonEmbeddable []model.IndexRow
}

func newFlushBatch(embedder embed.Embedder, tokenBudget, maxBatch int, store Store) *flushBatch {
	return &flushBatch{embedder: embedder, tokenBudget: tokenBudget, maxBatch: maxBatch, store: store}
}

// add queues one upsert candidate, flushing the embeddable buffer first if
// adding f would exceed the token budget or max batch size.
func (b *flushBatch) add(ctx context.Context, e Entity, f model.ExtractedField, entityID uuid.UUID) error {
	row := model.NewIndexRow(entityID, e.Type, e.Title, f)

	if !f.Kind.IsEmbeddable(f.Value) {
		b.nonEmbeddable = append(b.nonEmbeddable, row)
		return nil
	}

	text := f.Path + ": " + f.Value
	tokens := estimateTokens(f.Path, f.Value)
	if tokens > b.tokenBudget {
		slog.Warn("index: field exceeds token budget, skipping", "entity_id", e.ID, "path", f.Path, "tokens", tokens, "budget", b.tokenBudget)
		return nil
	}

	wouldExceedTokens := b.embeddableSum+tokens > b.tokenBudget
	wouldExceedBatch := b.maxBatch > 0 && len(b.embeddable)+1 > b.maxBatch
	if wouldExceedTokens || wouldExceedBatch {
		if err := b.flushEmbeddable(ctx); err != nil {
			return err
		}
	}

	b.embeddable = append(b.embeddable, pendingField{row: row, text: text})
	b.embeddableSum += tokens
	return nil
}

// flushEmbeddable embeds the buffered texts and upserts the resulting rows,
// matching §4.5 step 5's failure policy: a whole-batch embedding failure
// still upserts the rows with a null embedding rather than dropping them,
// while an embedding-count mismatch is a hard error.
func (b *flushBatch) flushEmbeddable(ctx context.Context) error {
	if len(b.embeddable) == 0 {
		return nil
	}

	texts := make([]string, len(b.embeddable))
	for i, p := range b.embeddable {
		texts[i] = p.text
	}

	vectors, err := b.embedder.EmbedBatch(ctx, texts, false)
	if err != nil {
		slog.Warn("index: embedding batch failed, upserting rows without embeddings", "count", len(texts), "error", err)
		vectors = make([][]float32, len(texts))
	} else if len(vectors) != len(texts) {
		return fmt.Errorf("index: embedding count mismatch: requested %d, got %d", len(texts), len(vectors))
	}

	rows := make([]model.IndexRow, len(b.embeddable))
	for i, p := range b.embeddable {
		row := p.row
		if vectors[i] != nil {
			row.Embedding = vectors[i]
			row.HasEmbedding = true
		}
		rows[i] = row
	}

	if err := b.store.UpsertRows(ctx, rows); err != nil {
		return fmt.Errorf("index: upsert embeddable rows: %w", err)
	}

	b.embeddable = b.embeddable[:0]
	b.embeddableSum = 0
	return nil
}

// flushAll flushes any remaining embeddable buffer and writes the
// non-embeddable rows accumulated alongside it.
func (b *flushBatch) flushAll(ctx context.Context) error {
	if err := b.flushEmbeddable(ctx); err != nil {
		return err
	}
	if len(b.nonEmbeddable) == 0 {
		return nil
	}
	if err := b.store.UpsertRows(ctx, b.nonEmbeddable); err != nil {
		return fmt.Errorf("index: upsert non-embeddable rows: %w", err)
	}
	b.nonEmbeddable = b.nonEmbeddable[:0]
	return nil
}
