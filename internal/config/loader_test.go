package config_test

import (
	"strings"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/config"
)

func TestValidate_NegativeChunkSize(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + "\nindex:\n  chunk_size: -1\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative chunk_size, got nil")
	}
	if !strings.Contains(err.Error(), "chunk_size") {
		t.Errorf("error should mention chunk_size, got: %v", err)
	}
}

func TestValidate_NegativeMaxConcurrentChunks(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + "\nindex:\n  max_concurrent_chunks: -1\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative max_concurrent_chunks, got nil")
	}
}

func TestValidate_NegativeRRFK(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + "\nrrf:\n  k: -1\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative rrf.k, got nil")
	}
}

func TestValidate_NegativeRRFMarginFactor(t *testing.T) {
	t.Parallel()
	yaml := minimalValidYAML + "\nrrf:\n  margin_factor: -0.1\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative rrf.margin_factor, got nil")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
index:
  chunk_size: -1
rrf:
  k: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "chunk_size") {
		t.Errorf("error should mention chunk_size, got: %v", err)
	}
	if !strings.Contains(errStr, "rrf.k") {
		t.Errorf("error should mention rrf.k, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	embeddingNames := config.ValidProviderNames["embedding"]
	if len(embeddingNames) == 0 {
		t.Fatal(`ValidProviderNames["embedding"] should not be empty`)
	}
	found := false
	for _, n := range embeddingNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error(`ValidProviderNames["embedding"] should contain "openai"`)
	}
}
