package mock_test

import (
	"context"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed/mock"
)

func TestEmbedBatchIsDeterministic(t *testing.T) {
	e := mock.New(8)
	a, err := e.EmbedBatch(context.Background(), []string{"hello"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	b, err := e.EmbedBatch(context.Background(), []string{"hello"}, false)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected deterministic vectors, got %v vs %v", a[0], b[0])
		}
	}
}

func TestEmbedBatchDryRunSkipsRecording(t *testing.T) {
	e := mock.New(4)
	if _, err := e.EmbedBatch(context.Background(), []string{"x"}, true); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(e.Calls) != 0 {
		t.Fatalf("expected dry-run not to be recorded, got %d calls", len(e.Calls))
	}
}

func TestEmbedBatchPerTextFailureYieldsNilVector(t *testing.T) {
	e := mock.New(4)
	e.FailTexts = map[string]bool{"bad": true}
	vecs, err := e.EmbedBatch(context.Background(), []string{"good", "bad"}, false)
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if vecs[0] == nil {
		t.Error("expected non-nil vector for 'good'")
	}
	if vecs[1] != nil {
		t.Error("expected nil vector for 'bad'")
	}
}

func TestEmbedBatchWholeBatchFailure(t *testing.T) {
	e := mock.New(4)
	e.FailBatch = true
	if _, err := e.EmbedBatch(context.Background(), []string{"x"}, false); err == nil {
		t.Fatal("expected error on simulated batch failure")
	}
}

func TestTokenBudgetOverride(t *testing.T) {
	e := mock.New(4).WithTokenBudget(1000, 0.25)
	maxTokens, margin := e.TokenBudget()
	if maxTokens != 1000 || margin != 0.25 {
		t.Fatalf("expected (1000, 0.25), got (%d, %v)", maxTokens, margin)
	}
}
