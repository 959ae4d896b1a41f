// Package query defines the discriminated union of query types the search
// core accepts (§3.1, §4.4): SelectQuery, ExportQuery, CountQuery, and
// AggregateQuery, plus their shared grouping/aggregation mixins.
package query

import (
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

const (
	// SelectDefaultLimit and SelectMaxLimit bound a SelectQuery's limit.
	SelectDefaultLimit = 10
	SelectMaxLimit     = 30

	// ExportDefaultLimit and ExportMaxLimit bound an ExportQuery's limit.
	ExportDefaultLimit = 1000
	ExportMaxLimit     = 10000
)

// RetrieverStrategy names an explicit retriever override for a SelectQuery,
// bypassing the router's §4.6 decision sequence.
type RetrieverStrategy string

const (
	RetrieverAuto       RetrieverStrategy = ""
	RetrieverStructured RetrieverStrategy = "STRUCTURED"
	RetrieverFuzzy      RetrieverStrategy = "FUZZY"
	RetrieverSemantic   RetrieverStrategy = "SEMANTIC"
	RetrieverRRFHybrid  RetrieverStrategy = "RRF_HYBRID"
)

// SearchQuery is the shared shape of SelectQuery and ExportQuery: an entity
// type, optional filter tree, optional free-text query, and a retriever
// override.
type SearchQuery struct {
	EntityType model.EntityType
	Filters    filter.Tree // nil means no filters
	QueryText  string
	Retriever  RetrieverStrategy
	Limit      int
}

// SelectQuery is a paginated search request (§3.1). Limit is validated to
// 1..30, defaulting to 10.
type SelectQuery struct {
	SearchQuery
}

// NewSelectQuery constructs a SelectQuery with defaulted/validated limit.
func NewSelectQuery(entityType model.EntityType, limit int) (*SelectQuery, error) {
	if limit == 0 {
		limit = SelectDefaultLimit
	}
	if limit < 1 || limit > SelectMaxLimit {
		return nil, fmt.Errorf("query: select limit must be between 1 and %d, got %d", SelectMaxLimit, limit)
	}
	return &SelectQuery{SearchQuery{EntityType: entityType, Limit: limit}}, nil
}

// ExportQuery is an unpaginated bulk search request (§3.1, §4.9). Limit is
// validated to 1..10000, defaulting to 1000.
type ExportQuery struct {
	SearchQuery
}

// NewExportQuery constructs an ExportQuery with defaulted/validated limit.
func NewExportQuery(entityType model.EntityType, limit int) (*ExportQuery, error) {
	if limit == 0 {
		limit = ExportDefaultLimit
	}
	if limit < 1 || limit > ExportMaxLimit {
		return nil, fmt.Errorf("query: export limit must be between 1 and %d, got %d", ExportMaxLimit, limit)
	}
	return &ExportQuery{SearchQuery{EntityType: entityType, Limit: limit}}, nil
}

// TemporalPeriod is the truncation granularity for a TemporalGrouping.
type TemporalPeriod string

const (
	PeriodYear    TemporalPeriod = "YEAR"
	PeriodQuarter TemporalPeriod = "QUARTER"
	PeriodMonth   TemporalPeriod = "MONTH"
	PeriodWeek    TemporalPeriod = "WEEK"
	PeriodDay     TemporalPeriod = "DAY"
	PeriodHour    TemporalPeriod = "HOUR"
)

// IsValid reports whether p is one of the known TemporalPeriod variants.
func (p TemporalPeriod) IsValid() bool {
	switch p {
	case PeriodYear, PeriodQuarter, PeriodMonth, PeriodWeek, PeriodDay, PeriodHour:
		return true
	default:
		return false
	}
}

// TemporalGrouping contributes a datetime field to the pivot, producing a
// truncated column (§4.4 "Grouping columns").
type TemporalGrouping struct {
	Field  string
	Period TemporalPeriod
}

// AggregationOp is the closed set of supported aggregation functions.
type AggregationOp string

const (
	AggCount AggregationOp = "COUNT"
	AggSum   AggregationOp = "SUM"
	AggAvg   AggregationOp = "AVG"
	AggMin   AggregationOp = "MIN"
	AggMax   AggregationOp = "MAX"
)

// IsValid reports whether op is one of the known AggregationOp variants.
func (op AggregationOp) IsValid() bool {
	switch op {
	case AggCount, AggSum, AggAvg, AggMin, AggMax:
		return true
	default:
		return false
	}
}

// Aggregation is one requested aggregate column (§3.1). Field is required
// for every op except COUNT, which aggregates over entity_id.
type Aggregation struct {
	Op    AggregationOp
	Alias string
	Field string
}

// Validate checks invariant 7 (non-empty alias; Field required for non-COUNT
// ops).
func (a Aggregation) Validate() error {
	if a.Alias == "" {
		return fmt.Errorf("query: aggregation alias must not be empty")
	}
	if !a.Op.IsValid() {
		return fmt.Errorf("query: unknown aggregation op %q", a.Op)
	}
	if a.Op != AggCount && a.Field == "" {
		return fmt.Errorf("query: aggregation %q of type %s requires a field path", a.Alias, a.Op)
	}
	return nil
}

// GroupingQuery is the shared shape of CountQuery and AggregateQuery: an
// entity type, optional filters, grouping, and cumulative flag.
type GroupingQuery struct {
	EntityType      model.EntityType
	Filters         filter.Tree
	GroupBy         []string
	TemporalGroupBy []TemporalGrouping
	OrderBy         string
	Cumulative      bool
}

// CountQuery requests per-group entity counts, or a single total when
// GroupBy/TemporalGroupBy are both empty (§4.4 "Simple count fast path").
type CountQuery struct {
	GroupingQuery
}

// AggregateQuery extends CountQuery with one or more requested aggregations
// (§3.1). Must supply at least one aggregation (invariant 7).
type AggregateQuery struct {
	GroupingQuery
	Aggregations []Aggregation
}

// Validate enforces invariants 7 and 8: non-empty group-by path strings, at
// least one aggregation, and cumulative aggregation restricted to exactly
// one temporal grouping with op in {COUNT, SUM}.
func (q *AggregateQuery) Validate() error {
	for _, p := range q.GroupBy {
		if p == "" {
			return fmt.Errorf("query: group_by paths must be non-empty strings")
		}
	}
	if len(q.Aggregations) == 0 {
		return fmt.Errorf("query: an AggregateQuery must supply at least one aggregation")
	}
	for _, a := range q.Aggregations {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if q.Cumulative {
		if len(q.TemporalGroupBy) != 1 {
			return fmt.Errorf("query: cumulative aggregation requires exactly one temporal grouping, got %d", len(q.TemporalGroupBy))
		}
		for _, a := range q.Aggregations {
			if a.Op != AggCount && a.Op != AggSum {
				return fmt.Errorf("query: cumulative aggregation requires op in {COUNT, SUM}, got %s for %q", a.Op, a.Alias)
			}
		}
	}
	return nil
}
