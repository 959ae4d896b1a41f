package ollama

import "testing"

func TestKnownDimensions_NomicEmbedText(t *testing.T) {
	if d := knownDimensions("nomic-embed-text"); d != 768 {
		t.Errorf("nomic-embed-text: expected 768 dimensions, got %d", d)
	}
}

func TestKnownDimensions_Unknown(t *testing.T) {
	if d := knownDimensions("some-future-model"); d != 0 {
		t.Errorf("unknown model: expected 0 (triggers probe), got %d", d)
	}
}

func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	p, err := New("", "nomic-embed-text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.baseURL != DefaultBaseURL {
		t.Errorf("expected default base URL %s, got %s", DefaultBaseURL, p.baseURL)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	p, err := New("http://localhost:11434/", "nomic-embed-text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.baseURL != "http://localhost:11434" {
		t.Errorf("expected trailing slash trimmed, got %s", p.baseURL)
	}
}

func TestNew_WithDimensionsOverride(t *testing.T) {
	p, err := New("", "some-future-model", WithDimensions(512))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Dimensions() != 512 {
		t.Errorf("expected overridden dimensions 512, got %d", p.Dimensions())
	}
}

func TestTokenBudget_AlwaysUnknownMaxTokens(t *testing.T) {
	p, err := New("", "nomic-embed-text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	maxTokens, margin := p.TokenBudget()
	if maxTokens != 0 {
		t.Errorf("expected maxTokens 0 (unknown), got %d", maxTokens)
	}
	if margin != defaultSafeMarginPercent {
		t.Errorf("expected default safe margin %v, got %v", defaultSafeMarginPercent, margin)
	}
}

func TestEmbedBatch_EmptyInputReturnsNil(t *testing.T) {
	p, err := New("", "nomic-embed-text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vecs, err := p.EmbedBatch(nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result for empty input, got %v", vecs)
	}
}

func TestEmbedBatch_DryRunReturnsNilVectors(t *testing.T) {
	p, err := New("", "nomic-embed-text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vecs, err := p.EmbedBatch(nil, []string{"a", "b"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[0] != nil || vecs[1] != nil {
		t.Errorf("expected 2 nil vectors in dry-run, got %v", vecs)
	}
}
