package searchtools

import (
	"encoding/json"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

func TestBuildSearchQuery_RequiresEntityType(t *testing.T) {
	if _, err := buildSearchQuery("", "", "", nil, 10); err == nil {
		t.Fatal("expected an error for empty entity_type")
	}
}

func TestBuildSearchQuery_DecodesFilters(t *testing.T) {
	filters := []byte(`{"kind":"path","path":"status","value_kind":"string","condition":{"kind":"string","op":"EQUALS","value":"active"}}`)

	sq, err := buildSearchQuery(string(model.EntityTypeWorkflow), "pending approvals", "", filters, 10)
	if err != nil {
		t.Fatalf("buildSearchQuery: %v", err)
	}
	if sq.EntityType != model.EntityTypeWorkflow {
		t.Errorf("EntityType = %q, want %q", sq.EntityType, model.EntityTypeWorkflow)
	}
	if sq.Filters == nil {
		t.Error("Filters not decoded")
	}
}

func TestBuildSearchQuery_RejectsInvalidFilters(t *testing.T) {
	if _, err := buildSearchQuery(string(model.EntityTypeWorkflow), "", "", []byte(`{"kind":"bogus"}`), 10); err == nil {
		t.Fatal("expected an error for an unrecognised filter tree kind")
	}
}

func TestBuildGroupingQuery_RequiresEntityType(t *testing.T) {
	if _, err := buildGroupingQuery(executeAggregationArgs{}); err == nil {
		t.Fatal("expected an error for empty entity_type")
	}
}

func TestBuildGroupingQuery_TranslatesTemporalGroupBy(t *testing.T) {
	a := executeAggregationArgs{
		EntityType: string(model.EntityTypeSubscription),
		TemporalGroupBy: []temporalGroupingArgs{
			{Field: "start_date", Period: "MONTH"},
		},
	}
	gq, err := buildGroupingQuery(a)
	if err != nil {
		t.Fatalf("buildGroupingQuery: %v", err)
	}
	if len(gq.TemporalGroupBy) != 1 || gq.TemporalGroupBy[0].Period != query.TemporalPeriod("MONTH") {
		t.Errorf("TemporalGroupBy = %+v, want one entry with period MONTH", gq.TemporalGroupBy)
	}
}

func TestTools_ReturnsFourToolsWithUniqueNames(t *testing.T) {
	defs := Tools(nil, nil)
	if len(defs) != 4 {
		t.Fatalf("got %d tools, want 4", len(defs))
	}

	seen := make(map[string]bool)
	for _, tool := range defs {
		if tool.Definition.Name == "" {
			t.Error("tool has an empty name")
		}
		if seen[tool.Definition.Name] {
			t.Errorf("duplicate tool name %q", tool.Definition.Name)
		}
		seen[tool.Definition.Name] = true
		if tool.Handler == nil {
			t.Errorf("tool %q has a nil handler", tool.Definition.Name)
		}
		if tool.Definition.Parameters["required"] == nil {
			t.Errorf("tool %q declares no required parameters", tool.Definition.Name)
		}
	}

	want := []string{"execute_search", "execute_aggregation", "execute_export", "list_paths"}
	for _, name := range want {
		if !seen[name] {
			t.Errorf("missing tool %q", name)
		}
	}
}

func TestExecuteSearchHandler_RejectsMalformedJSON(t *testing.T) {
	handler := executeSearchHandler(nil)
	if _, err := handler(nil, "not json"); err == nil {
		t.Fatal("expected an error for malformed JSON args")
	}
}

func TestExecuteSearchHandler_RejectsMissingEntityType(t *testing.T) {
	handler := executeSearchHandler(nil)
	args, err := json.Marshal(executeSearchArgs{Limit: 5})
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	if _, err := handler(nil, string(args)); err == nil {
		t.Fatal("expected an error for missing entity_type")
	}
}
