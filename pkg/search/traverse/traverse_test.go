package traverse_test

import (
	"context"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/traverse"
)

// fakeEntity is a minimal Dumper used across these tests.
type fakeEntity struct {
	data map[string]any
	err  error
}

func (f fakeEntity) Dump() (map[string]any, error) { return f.data, f.err }

func TestBaseGetFieldsFlattensNestedMap(t *testing.T) {
	base := traverse.Base{EntityLabel: "Test"}
	entity := fakeEntity{data: map[string]any{
		"status": "active",
		"customer": map[string]any{
			"name": "Acme",
		},
	}}

	fields, err := base.GetFields(context.Background(), entity, "id", "subscription")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d: %+v", len(fields), fields)
	}
	// Sorted by segment count then lexicographic path: "subscription.customer.name" (2 dots)
	// sorts after "subscription.status" (1 dot).
	if fields[0].Path != "subscription.status" {
		t.Errorf("expected subscription.status first, got %q", fields[0].Path)
	}
	if fields[1].Path != "subscription.customer.name" {
		t.Errorf("expected subscription.customer.name second, got %q", fields[1].Path)
	}
}

func TestBaseGetFieldsFlattensSingleItemList(t *testing.T) {
	base := traverse.Base{}
	entity := fakeEntity{data: map[string]any{
		"endpoints": []any{map[string]any{"name": "eth0"}},
	}}
	fields, err := base.GetFields(context.Background(), entity, "id", "product")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	for _, f := range fields {
		if f.Path == "product.endpoints.0.name" {
			t.Fatal("single-item list must be flattened without index suffix")
		}
	}
	if len(fields) != 1 || fields[0].Path != "product.endpoints.name" {
		t.Fatalf("expected flattened path product.endpoints.name, got %+v", fields)
	}
}

func TestBaseGetFieldsIndexesMultiItemList(t *testing.T) {
	base := traverse.Base{}
	entity := fakeEntity{data: map[string]any{
		"endpoints": []any{
			map[string]any{"name": "eth0"},
			map[string]any{"name": "eth1"},
		},
	}}
	fields, err := base.GetFields(context.Background(), entity, "id", "product")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	found := map[string]bool{}
	for _, f := range fields {
		found[f.Path] = true
	}
	if !found["product.endpoints.0.name"] || !found["product.endpoints.1.name"] {
		t.Fatalf("expected index-suffixed paths for multi-item list, got %+v", fields)
	}
}

func TestBaseGetFieldsReturnsNilOnDumpFailure(t *testing.T) {
	base := traverse.Base{}
	entity := fakeEntity{err: &traverse.ModelLoadError{EntityID: "abc", Cause: nil}}
	fields, err := base.GetFields(context.Background(), entity, "id", "subscription")
	if err != nil {
		t.Fatalf("GetFields should not surface ModelLoadError, got %v", err)
	}
	if fields != nil {
		t.Fatalf("expected nil fields on model load failure, got %+v", fields)
	}
}

func TestDefaultRegistryResolvesAllEntityTypes(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	for _, et := range []model.EntityType{
		model.EntityTypeSubscription, model.EntityTypeProduct,
		model.EntityTypeProcess, model.EntityTypeWorkflow,
	} {
		if _, err := reg.For(et); err != nil {
			t.Errorf("For(%s): %v", et, err)
		}
	}
}

func TestRegistryForUnknownEntityTypeErrors(t *testing.T) {
	reg := traverse.NewRegistry()
	if _, err := reg.For(model.EntityType("BOGUS")); err == nil {
		t.Fatal("expected error for unregistered entity type")
	}
}

func TestBuildProductReferencesSkipsUntaggedProducts(t *testing.T) {
	refs := traverse.BuildProductReferences([]traverse.ProductReference{
		{Name: "Internet", Tag: "", Dump: map[string]any{"speed": "100"}},
		{Name: "TV", Tag: "TV", Dump: map[string]any{"channels": "200"}},
	})
	if _, ok := refs["tv"]; !ok {
		t.Fatal("expected lowercased tag key 'tv' in references")
	}
	if len(refs) != 1 {
		t.Fatalf("expected untagged product to be skipped, got %+v", refs)
	}
}
