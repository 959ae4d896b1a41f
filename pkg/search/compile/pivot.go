package compile

import (
	"fmt"
	"strings"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/sqlbuild"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

// GroupColumn describes one compiled grouping column: its pivot source path,
// its output alias, and (for temporal groupings) the date_trunc period.
type GroupColumn struct {
	Path   string
	Alias  string
	Period query.TemporalPeriod // "" for a plain (non-temporal) grouping
}

// AggColumn describes one compiled aggregation column.
type AggColumn struct {
	Op    query.AggregationOp
	Alias string
	Path  string // "" for COUNT
}

// CountSQL is a compiled CountQuery or AggregateQuery: a full statement
// (including its own `WITH` clause) plus positional args, and the resolved
// grouping/aggregation column metadata the caller needs to split result rows
// (§4.7 "Result Formatting").
type CountSQL struct {
	Statement    string
	Args         []any
	GroupColumns []GroupColumn
	AggColumns   []AggColumn
}

// BuildCountQuery compiles a CountQuery into SQL. Without grouping it emits
// the §4.4 "Simple count fast path"; with grouping it builds the pivot CTE
// and groups by every grouping column.
func BuildCountQuery(q *query.CountQuery) (CountSQL, error) {
	return buildGroupingQuery(&q.GroupingQuery, nil)
}

// BuildAggregateQuery compiles an AggregateQuery, which extends CountQuery's
// pivot with one or more aggregation columns (§4.4 "Grouping columns").
func BuildAggregateQuery(q *query.AggregateQuery) (CountSQL, error) {
	if err := q.Validate(); err != nil {
		return CountSQL{}, err
	}
	return buildGroupingQuery(&q.GroupingQuery, q.Aggregations)
}

func buildGroupingQuery(gq *query.GroupingQuery, aggregations []query.Aggregation) (CountSQL, error) {
	candidate, err := BuildCandidateCTE(gq.EntityType, gq.Filters)
	if err != nil {
		return CountSQL{}, err
	}
	b := sqlbuild.New()
	for _, a := range candidate.Args {
		b.Arg(a)
	}

	groupCols := groupColumnsFor(gq)
	aggCols := aggColumnsFor(aggregations)

	if len(groupCols) == 0 && len(aggCols) == 0 {
		// §4.4 "Simple count fast path": no pivot needed.
		stmt := fmt.Sprintf(
			"WITH candidate AS (\n%s\n)\nSELECT count(DISTINCT entity_id) AS total_count FROM candidate",
			indent(candidate.Body),
		)
		return CountSQL{Statement: stmt, Args: candidate.Args}, nil
	}

	pivotPaths := make([]string, 0, len(groupCols)+len(aggCols))
	for _, g := range groupCols {
		pivotPaths = append(pivotPaths, g.Path)
	}
	for _, a := range aggCols {
		if a.Path != "" {
			pivotPaths = append(pivotPaths, a.Path)
		}
	}

	pivotSelect := []string{"entity_id"}
	for _, p := range pivotPaths {
		ph := b.Arg(p)
		pivotSelect = append(pivotSelect, fmt.Sprintf(
			"MAX(CASE WHEN path = %s THEN value END) AS %s", ph, SanitizeAlias(p),
		))
	}

	pivotCTE := fmt.Sprintf(
		"pivot AS (\n  SELECT %s\n  FROM index_row\n  WHERE entity_id IN (SELECT entity_id FROM candidate) AND path = ANY(%s)\n  GROUP BY entity_id\n)",
		strings.Join(pivotSelect, ",\n         "),
		b.Arg(pivotPaths),
	)

	selectCols := make([]string, 0, len(groupCols)+len(aggCols))
	groupByCols := make([]string, 0, len(groupCols))
	for _, g := range groupCols {
		col := SanitizeAlias(g.Path)
		if g.Period != "" {
			selectCols = append(selectCols, fmt.Sprintf(
				"date_trunc(%s, CAST(%s AS TIMESTAMPTZ)) AS %s", b.Arg(string(g.Period)), col, g.Alias,
			))
			groupByCols = append(groupByCols, g.Alias)
		} else {
			selectCols = append(selectCols, fmt.Sprintf("%s AS %s", col, g.Alias))
			groupByCols = append(groupByCols, g.Alias)
		}
	}
	for _, a := range aggCols {
		selectCols = append(selectCols, aggregationExpr(a))
	}
	if len(aggCols) == 0 {
		selectCols = append(selectCols, "count(DISTINCT entity_id) AS total_count")
	}

	groupBy := ""
	if len(groupByCols) > 0 {
		groupBy = "\nGROUP BY " + strings.Join(groupByCols, ", ")
	}

	groupedSelect := fmt.Sprintf("SELECT %s\nFROM pivot%s", strings.Join(selectCols, ",\n       "), groupBy)

	if gq.Cumulative {
		stmt, ok := applyCumulative(groupCols, aggCols)
		if ok {
			full := fmt.Sprintf(
				"WITH candidate AS (\n%s\n),\n%s,\ngrouped AS (\n%s\n)\n%s",
				indent(candidate.Body), pivotCTE, indent(groupedSelect), stmt,
			)
			return CountSQL{Statement: full, Args: b.Args(), GroupColumns: groupCols, AggColumns: aggCols}, nil
		}
	}

	full := fmt.Sprintf(
		"WITH candidate AS (\n%s\n),\n%s\n%s",
		indent(candidate.Body), pivotCTE, groupedSelect,
	)
	return CountSQL{Statement: full, Args: b.Args(), GroupColumns: groupCols, AggColumns: aggCols}, nil
}

// groupColumnsFor resolves a GroupingQuery's GroupBy and TemporalGroupBy
// into pivot column descriptors.
func groupColumnsFor(gq *query.GroupingQuery) []GroupColumn {
	cols := make([]GroupColumn, 0, len(gq.GroupBy)+len(gq.TemporalGroupBy))
	for _, p := range gq.GroupBy {
		cols = append(cols, GroupColumn{Path: p, Alias: SanitizeAlias(p)})
	}
	for _, tg := range gq.TemporalGroupBy {
		cols = append(cols, GroupColumn{
			Path:   tg.Field,
			Alias:  fmt.Sprintf("%s_%s", SanitizeAlias(tg.Field), strings.ToLower(string(tg.Period))),
			Period: tg.Period,
		})
	}
	return cols
}

func aggColumnsFor(aggregations []query.Aggregation) []AggColumn {
	cols := make([]AggColumn, len(aggregations))
	for i, a := range aggregations {
		cols[i] = AggColumn{Op: a.Op, Alias: a.Alias, Path: a.Field}
	}
	return cols
}

// aggregationExpr compiles one aggregation column per §4.4: count(entity_id)
// for COUNT, sum/avg/min/max(CAST(col AS INTEGER)) otherwise.
func aggregationExpr(a AggColumn) string {
	if a.Op == query.AggCount {
		return fmt.Sprintf("count(entity_id) AS %s", a.Alias)
	}
	col := SanitizeAlias(a.Path)
	fn := strings.ToLower(string(a.Op))
	return fmt.Sprintf("%s(CAST(%s AS INTEGER)) AS %s", fn, col, a.Alias)
}

// applyCumulative builds the outer SELECT that adds a cumulative window
// function column per §4.4 "Cumulative", reading from the "grouped" CTE
// rather than referencing that CTE's own SELECT-list aliases: Postgres does
// not expose a SELECT list's output aliases to other items in that same
// SELECT list or to a window's OVER (ORDER BY ...) clause, only to
// GROUP BY/ORDER BY/HAVING, so the cumulative sum must run one level up
// against the grouped query's materialized output columns. Returns ok=false
// when no eligible aggregation exists, in which case the caller should emit
// the grouped query unwrapped. Callers must only invoke this when
// gq.Cumulative is set; query.AggregateQuery.Validate enforces that
// cumulative queries have exactly one temporal grouping and an eligible
// aggregation op before compilation reaches this point.
func applyCumulative(groupCols []GroupColumn, aggCols []AggColumn) (string, bool) {
	if len(groupCols) != 1 || groupCols[0].Period == "" || len(aggCols) == 0 {
		return "", false
	}
	temporalAlias := groupCols[0].Alias
	extra := make([]string, 0, len(aggCols))
	for _, a := range aggCols {
		if a.Op != query.AggCount && a.Op != query.AggSum {
			continue
		}
		extra = append(extra, fmt.Sprintf(
			"sum(%s) OVER (ORDER BY %s) AS %s_cumulative", a.Alias, temporalAlias, a.Alias,
		))
	}
	if len(extra) == 0 {
		return "", false
	}
	return fmt.Sprintf("SELECT *,\n       %s\nFROM grouped", strings.Join(extra, ",\n       ")), true
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
