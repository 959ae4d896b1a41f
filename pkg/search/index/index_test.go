package index_test

import (
	"context"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed/mock"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/index"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/traverse"
)

type fakeDumper struct{ data map[string]any }

func (d fakeDumper) Dump() (map[string]any, error) { return d.data, nil }

type fakeStore struct {
	existing map[string]map[string]string
	upserted []model.IndexRow
	deleted  []index.StalePath
}

func (s *fakeStore) ExistingHashes(_ context.Context, _ model.EntityType, ids []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		out[id] = s.existing[id]
	}
	return out, nil
}

func (s *fakeStore) DeleteStalePaths(_ context.Context, _ model.EntityType, stale []index.StalePath, _ int) error {
	s.deleted = append(s.deleted, stale...)
	return nil
}

func (s *fakeStore) UpsertRows(_ context.Context, rows []model.IndexRow) error {
	s.upserted = append(s.upserted, rows...)
	return nil
}

const testUUID = "11111111-1111-1111-1111-111111111111"

func TestRunUpsertsNewFields(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	store := &fakeStore{existing: map[string]map[string]string{}}
	embedder := mock.New(4)

	entities := []index.Entity{
		{ID: testUUID, Type: model.EntityTypeSubscription, Title: "My Sub", Dumper: fakeDumper{data: map[string]any{
			"status": "active",
		}}},
	}

	ix := index.New(reg, embedder, store, index.DefaultConfig())
	n, err := ix.Run(context.Background(), entities)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processed entity, got %d", n)
	}
	if len(store.upserted) == 0 {
		t.Fatal("expected at least one upserted row")
	}
}

func TestRunSkipsIdenticalContentHash(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	hash := model.ComputeContentHash("subscription.status", "active", model.FieldKindString, "My Sub")
	store := &fakeStore{existing: map[string]map[string]string{
		testUUID: {"subscription.status": hash},
	}}
	embedder := mock.New(4)

	entities := []index.Entity{
		{ID: testUUID, Type: model.EntityTypeSubscription, Title: "My Sub", Dumper: fakeDumper{data: map[string]any{
			"status": "active",
		}}},
	}

	ix := index.New(reg, embedder, store, index.DefaultConfig())
	if _, err := ix.Run(context.Background(), entities); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.upserted) != 0 {
		t.Fatalf("expected no upserts for identical content, got %+v", store.upserted)
	}
}

func TestRunDeletesStalePaths(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	store := &fakeStore{existing: map[string]map[string]string{
		testUUID: {"subscription.removed_field": "somehash"},
	}}
	embedder := mock.New(4)

	entities := []index.Entity{
		{ID: testUUID, Type: model.EntityTypeSubscription, Title: "My Sub", Dumper: fakeDumper{data: map[string]any{
			"status": "active",
		}}},
	}

	ix := index.New(reg, embedder, store, index.DefaultConfig())
	if _, err := ix.Run(context.Background(), entities); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0].Path != "subscription.removed_field" {
		t.Fatalf("expected stale path deletion, got %+v", store.deleted)
	}
}

func TestRunRefusesWhenNoTokenBudgetAvailable(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	store := &fakeStore{existing: map[string]map[string]string{}}
	embedder := mock.New(4).WithTokenBudget(0, 0)

	entities := []index.Entity{
		{ID: testUUID, Type: model.EntityTypeSubscription, Title: "My Sub", Dumper: fakeDumper{data: map[string]any{
			"status": "active",
		}}},
	}

	ix := index.New(reg, embedder, store, index.Config{FallbackTokenBudget: 0})
	if _, err := ix.Run(context.Background(), entities); err == nil {
		t.Fatal("expected error when no token budget is resolvable")
	}
}

func TestRunEmptyEntitiesIsNoop(t *testing.T) {
	reg := traverse.NewDefaultRegistry()
	store := &fakeStore{}
	embedder := mock.New(4)
	ix := index.New(reg, embedder, store, index.DefaultConfig())
	n, err := ix.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
