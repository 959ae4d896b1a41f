package openai

import (
	"context"
	"testing"
)

func TestModelDimensions_TextEmbedding3Small(t *testing.T) {
	if d := modelDimensions("text-embedding-3-small"); d != 1536 {
		t.Errorf("text-embedding-3-small: expected 1536 dimensions, got %d", d)
	}
}

func TestModelDimensions_TextEmbedding3Large(t *testing.T) {
	if d := modelDimensions("text-embedding-3-large"); d != 3072 {
		t.Errorf("text-embedding-3-large: expected 3072 dimensions, got %d", d)
	}
}

func TestModelDimensions_Unknown(t *testing.T) {
	if d := modelDimensions("some-future-model"); d <= 0 {
		t.Errorf("unknown model: expected positive dimensions, got %d", d)
	}
}

func TestModelMaxTokens_KnownModelNonZero(t *testing.T) {
	if mt := modelMaxTokens("text-embedding-3-small"); mt != 8191 {
		t.Errorf("expected 8191 max tokens, got %d", mt)
	}
}

func TestModelMaxTokens_UnknownModelIsZero(t *testing.T) {
	if mt := modelMaxTokens("some-future-model"); mt != 0 {
		t.Errorf("expected 0 max tokens for unknown model (caller falls back), got %d", mt)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, p.ModelID())
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestNew_DefaultSafeMargin(t *testing.T) {
	p, err := New("sk-test", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, margin := p.TokenBudget()
	if margin != defaultSafeMarginPercent {
		t.Errorf("expected default safe margin %v, got %v", defaultSafeMarginPercent, margin)
	}
}

func TestNew_WithSafeMarginPercentOverride(t *testing.T) {
	p, err := New("sk-test", "text-embedding-3-small", WithSafeMarginPercent(0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, margin := p.TokenBudget()
	if margin != 0.2 {
		t.Errorf("expected overridden safe margin 0.2, got %v", margin)
	}
}

func TestEmbedBatch_DryRunReturnsNilVectorsWithoutNetworkCall(t *testing.T) {
	p, err := New("sk-test", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v != nil {
			t.Errorf("index %d: expected nil vector in dry-run, got %v", i, v)
		}
	}
}

func TestEmbedBatch_EmptyInputReturnsNil(t *testing.T) {
	p, err := New("sk-test", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vecs, err := p.EmbedBatch(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result for empty input, got %v", vecs)
	}
}

func TestFloat64ToFloat32(t *testing.T) {
	in := []float64{1.0, 2.5, -0.5}
	out := float64ToFloat32(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d elements, got %d", len(in), len(out))
	}
	for i, v := range out {
		if expected := float32(in[i]); v != expected {
			t.Errorf("index %d: expected %v, got %v", i, expected, v)
		}
	}
}
