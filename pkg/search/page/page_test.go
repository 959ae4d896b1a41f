package page_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/page"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := page.PageCursor{Score: "0.950000000000", ID: "entity-1", QueryID: uuid.New()}
	s, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := page.Decode(s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != c {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	if _, err := page.Decode("not-valid-base64!!"); err == nil {
		t.Fatal("expected InvalidCursorError for malformed base64")
	} else if _, ok := err.(page.InvalidCursorError); !ok {
		t.Fatalf("expected InvalidCursorError, got %T", err)
	}
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	encoded := "eyJzY29yZSI6IjAuNSJ9" // {"score":"0.5"} — no id, no query_id
	if _, err := page.Decode(encoded); err == nil {
		t.Fatal("expected InvalidCursorError for missing id/query_id")
	}
}
