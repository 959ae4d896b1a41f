// Package format implements §4.7 "Result Formatting": turning raw
// retriever rows into the SearchResult/AggregationResult shapes callers
// receive, including highlight-index computation and display truncation.
package format

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/compile"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/retrieve"
)

// DefaultMaxDisplayLength bounds MatchingField.Text before truncation
// kicks in, per §4.7.
const DefaultMaxDisplayLength = 200

// HighlightRange is a half-open [Start, End) byte range within
// MatchingField.Text.
type HighlightRange struct {
	Start int
	End   int
}

// MatchingField describes which indexed field justified a search result's
// score and where within its text the query matched.
type MatchingField struct {
	Text             string
	Path             string
	HighlightIndices []HighlightRange
}

// SearchResult is the §4.7 per-row response shape for search operations.
type SearchResult struct {
	EntityID      uuid.UUID
	EntityType    model.EntityType
	EntityTitle   string
	Score         string
	PerfectMatch  bool
	MatchingField *MatchingField
}

// BuildSearchResult converts one retrieve.Row into a SearchResult,
// computing its MatchingField (if the row carries a highlight) by matching
// queryText's words against the highlight text.
func BuildSearchResult(row retrieve.Row, entityType model.EntityType, queryText string) SearchResult {
	res := SearchResult{
		EntityID:     row.EntityID,
		EntityType:   entityType,
		EntityTitle:  row.EntityTitle,
		Score:        row.Score,
		PerfectMatch: row.PerfectMatch,
	}
	if row.HighlightText != "" {
		mf := ComputeMatchingField(row.HighlightPath, row.HighlightText, queryText, DefaultMaxDisplayLength)
		res.MatchingField = &mf
	}
	return res
}

// ComputeMatchingField finds every occurrence of each word of queryText in
// text, by both word-boundary and plain-substring regex (so "widget" also
// matches inside "widgets"), deduplicates and sorts the resulting ranges,
// then truncates text around the first highlight when it exceeds maxLen.
func ComputeMatchingField(path, text, queryText string, maxLen int) MatchingField {
	ranges := matchRanges(text, queryText)
	truncated, shifted := truncateAroundHighlight(text, ranges, maxLen)
	return MatchingField{Text: truncated, Path: path, HighlightIndices: shifted}
}

func matchRanges(text, queryText string) []HighlightRange {
	var ranges []HighlightRange
	for _, word := range strings.Fields(queryText) {
		if word == "" {
			continue
		}
		quoted := regexp.QuoteMeta(word)
		boundary := regexp.MustCompile(`(?i)\b` + quoted + `\b`)
		substring := regexp.MustCompile(`(?i)` + quoted)

		for _, loc := range boundary.FindAllStringIndex(text, -1) {
			ranges = append(ranges, HighlightRange{Start: loc[0], End: loc[1]})
		}
		for _, loc := range substring.FindAllStringIndex(text, -1) {
			ranges = append(ranges, HighlightRange{Start: loc[0], End: loc[1]})
		}
	}
	return dedupeAndSort(ranges)
}

func dedupeAndSort(ranges []HighlightRange) []HighlightRange {
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	out := ranges[:0]
	for _, r := range ranges {
		if len(out) > 0 && out[len(out)-1] == r {
			continue
		}
		out = append(out, r)
	}
	return out
}

// truncateAroundHighlight shortens text to maxLen characters centered on
// the first highlight range, inserting "..." ellipses on whichever side(s)
// were cut, and shifts every HighlightRange to match the new offsets.
// Ranges that fall entirely outside the retained window are dropped.
func truncateAroundHighlight(text string, ranges []HighlightRange, maxLen int) (string, []HighlightRange) {
	if maxLen <= 0 || len(text) <= maxLen {
		return text, ranges
	}

	center := 0
	if len(ranges) > 0 {
		center = (ranges[0].Start + ranges[0].End) / 2
	}

	half := maxLen / 2
	start := center - half
	end := start + maxLen
	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(text) {
		end = len(text)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	const ellipsis = "..."
	prefix, suffix := "", ""
	if start > 0 {
		prefix = ellipsis
	}
	if end < len(text) {
		suffix = ellipsis
	}
	offset := start - len(prefix)

	shifted := make([]HighlightRange, 0, len(ranges))
	for _, r := range ranges {
		if r.End <= start || r.Start >= end {
			continue
		}
		newStart := r.Start - offset
		newEnd := r.End - offset
		if newStart < 0 {
			newStart = 0
		}
		if newEnd > len(prefix)+(end-start)+len(suffix) {
			newEnd = len(prefix) + (end - start) + len(suffix)
		}
		shifted = append(shifted, HighlightRange{Start: newStart, End: newEnd})
	}

	return prefix + text[start:end] + suffix, shifted
}

// AggregationResult is the §4.7 per-row response shape for count/aggregate
// operations: grouping column values split out from aggregation values.
type AggregationResult struct {
	GroupValues  map[string]string
	Aggregations map[string]float64
}

// BuildAggregationResults splits each row (as produced by scanning a
// compile.CountSQL statement into column-name-keyed maps) into its grouping
// and aggregation columns, using sql's GroupColumns/AggColumns metadata to
// decide which alias belongs to which side.
func BuildAggregationResults(sql compile.CountSQL, rows []map[string]any) []AggregationResult {
	groupAliases := make(map[string]bool, len(sql.GroupColumns))
	for _, g := range sql.GroupColumns {
		groupAliases[g.Alias] = true
	}
	aggAliases := make(map[string]bool, len(sql.AggColumns))
	for _, a := range sql.AggColumns {
		aggAliases[a.Alias] = true
	}

	results := make([]AggregationResult, 0, len(rows))
	for _, row := range rows {
		res := AggregationResult{
			GroupValues:  map[string]string{},
			Aggregations: map[string]float64{},
		}
		for col, v := range row {
			switch {
			case groupAliases[col]:
				res.GroupValues[col] = stringifyGroupValue(v)
			case aggAliases[col] || strings.HasSuffix(col, "_cumulative") || col == "total_count":
				if f, ok := asFloat64(v); ok {
					res.Aggregations[col] = f
				}
			}
		}
		results = append(results, res)
	}
	return results
}

func stringifyGroupValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
