package compile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

func TestBuildCandidateCTENoFilters(t *testing.T) {
	sql, err := compile.BuildCandidateCTE(model.EntityTypeSubscription, nil)
	if err != nil {
		t.Fatalf("BuildCandidateCTE: %v", err)
	}
	if !strings.Contains(sql.Body, "candidate.entity_type = $1") {
		t.Errorf("expected entity_type predicate, got %s", sql.Body)
	}
	if len(sql.Args) != 1 || sql.Args[0] != "SUBSCRIPTION" {
		t.Errorf("expected one arg SUBSCRIPTION, got %+v", sql.Args)
	}
}

func TestBuildCandidateCTEWithFilter(t *testing.T) {
	tree := filter.PathFilter{
		Path:      "subscription.status",
		Condition: filter.StringCondition{Op: filter.StringEQ, Value: "active"},
	}
	sql, err := compile.BuildCandidateCTE(model.EntityTypeSubscription, tree)
	if err != nil {
		t.Fatalf("BuildCandidateCTE: %v", err)
	}
	if !strings.Contains(sql.Body, "EXISTS") {
		t.Errorf("expected EXISTS subquery in candidate body, got %s", sql.Body)
	}
	if len(sql.Args) != 4 {
		t.Fatalf("expected 4 args (entity_type, entity_type again, path, value), got %+v", sql.Args)
	}
}

func TestBuildCountQuerySimpleFastPath(t *testing.T) {
	q := &query.CountQuery{GroupingQuery: query.GroupingQuery{EntityType: model.EntityTypeSubscription}}
	sql, err := compile.BuildCountQuery(q)
	if err != nil {
		t.Fatalf("BuildCountQuery: %v", err)
	}
	if !strings.Contains(sql.Statement, "count(DISTINCT entity_id) AS total_count") {
		t.Errorf("expected simple count fast path, got %s", sql.Statement)
	}
	if strings.Contains(sql.Statement, "pivot") {
		t.Errorf("fast path should not build a pivot CTE, got %s", sql.Statement)
	}
}

func TestBuildCountQueryWithGrouping(t *testing.T) {
	q := &query.CountQuery{GroupingQuery: query.GroupingQuery{
		EntityType: model.EntityTypeSubscription,
		GroupBy:    []string{"subscription.status"},
	}}
	sql, err := compile.BuildCountQuery(q)
	if err != nil {
		t.Fatalf("BuildCountQuery: %v", err)
	}
	if !strings.Contains(sql.Statement, "pivot AS") {
		t.Errorf("expected pivot CTE, got %s", sql.Statement)
	}
	if len(sql.GroupColumns) != 1 || sql.GroupColumns[0].Alias != "subscription_status" {
		t.Errorf("expected sanitized alias subscription_status, got %+v", sql.GroupColumns)
	}
}

func TestBuildAggregateQueryCumulativeAddsWindowFunction(t *testing.T) {
	q := &query.AggregateQuery{
		GroupingQuery: query.GroupingQuery{
			EntityType:      model.EntityTypeSubscription,
			TemporalGroupBy: []query.TemporalGrouping{{Field: "subscription.start_date", Period: query.PeriodMonth}},
			Cumulative:      true,
		},
		Aggregations: []query.Aggregation{{Op: query.AggSum, Alias: "total", Field: "subscription.price"}},
	}
	sql, err := compile.BuildAggregateQuery(q)
	if err != nil {
		t.Fatalf("BuildAggregateQuery: %v", err)
	}
	if !strings.Contains(sql.Statement, "total_cumulative") {
		t.Errorf("expected cumulative column, got %s", sql.Statement)
	}
	if !strings.Contains(sql.Statement, "date_trunc") {
		t.Errorf("expected date_trunc temporal column, got %s", sql.Statement)
	}

	// The cumulative window function must read the grouped CTE's materialized
	// columns from an outer SELECT, not reference that CTE's own SELECT-list
	// aliases from within the same SELECT — Postgres only exposes SELECT-list
	// aliases to GROUP BY/ORDER BY/HAVING, not to sibling SELECT items or a
	// window's OVER (ORDER BY ...) clause.
	groupedIdx := strings.Index(sql.Statement, "grouped AS (")
	cumulativeIdx := strings.Index(sql.Statement, "total_cumulative")
	if groupedIdx == -1 || cumulativeIdx == -1 || cumulativeIdx < groupedIdx {
		t.Fatalf("expected a grouped CTE followed by an outer cumulative SELECT, got %s", sql.Statement)
	}
	groupedBody := sql.Statement[groupedIdx:cumulativeIdx]
	if strings.Contains(groupedBody, "OVER") {
		t.Errorf("window function must live in the outer SELECT, not inside the grouped CTE: %s", groupedBody)
	}
	if !strings.Contains(sql.Statement, "FROM grouped") {
		t.Errorf("expected outer SELECT to read FROM grouped, got %s", sql.Statement)
	}
}

func TestBuildAggregateQueryRejectsInvalid(t *testing.T) {
	q := &query.AggregateQuery{GroupingQuery: query.GroupingQuery{EntityType: model.EntityTypeSubscription}}
	if _, err := compile.BuildAggregateQuery(q); err == nil {
		t.Fatal("expected validation error for AggregateQuery with no aggregations")
	}
}

func TestSanitizeAlias(t *testing.T) {
	if got := compile.SanitizeAlias("subscription.customer-id"); got != "subscription_customer_id" {
		t.Errorf("expected subscription_customer_id, got %s", got)
	}
}

type fakePathStore struct {
	paths []compile.PathInfo
}

func (s fakePathStore) DistinctPaths(_ context.Context, _ model.EntityType) ([]compile.PathInfo, error) {
	return s.paths, nil
}

func TestDiscoverPathsMarksAncestors(t *testing.T) {
	store := fakePathStore{paths: []compile.PathInfo{
		{Path: "subscription.customer", ValueType: model.FieldKindBlock},
		{Path: "subscription.customer.name", ValueType: model.FieldKindString},
		{Path: "subscription.status", ValueType: model.FieldKindString},
	}}
	infos, err := compile.DiscoverPaths(context.Background(), store, model.EntityTypeSubscription)
	if err != nil {
		t.Fatalf("DiscoverPaths: %v", err)
	}
	byPath := map[string]compile.PathInfo{}
	for _, i := range infos {
		byPath[i.Path] = i
	}
	if !byPath["subscription.customer"].IsAncestor {
		t.Error("expected subscription.customer to be marked as an ancestor")
	}
	if byPath["subscription.status"].IsAncestor {
		t.Error("expected subscription.status not to be marked as an ancestor")
	}
}
