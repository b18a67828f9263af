package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — One filter → group → aggregate → rank → chart pipeline run
// ============================================================================
// Pipeline:
//   1. Apply predicates → SubView
//   2. Group and aggregate
//   3. Rank (top-N) or sort
//   4. Build chart config
//
// Every page panel is one Execute call. No I/O, no shared state.
// ============================================================================

// ErrNoGroupBy is returned when a query has no grouping key.
var ErrNoGroupBy = errors.New("query has no groupBy key")

// Query describes one aggregate panel.
type Query struct {
	Title      string      `json:"title"`
	Predicates []Predicate `json:"-"`
	GroupBy    []string    `json:"groupBy"` // one key, or two for stacked series
	Measure    string      `json:"measure"`
	Op         Op          `json:"op"`
	SortBy     string      `json:"sortBy,omitempty"`
	Limit      int         `json:"limit,omitempty"` // top-N by value; 0 = all
	Chart      ChartKind   `json:"chart"`
	XAxis      string      `json:"xAxis,omitempty"`
	YAxis      string      `json:"yAxis,omitempty"`
}

// Result is the output of one pipeline run.
type Result struct {
	Title  string       `json:"title"`
	Rows   int          `json:"rows"` // rows after filtering
	Groups []Group      `json:"groups"`
	Chart  *ChartConfig `json:"chart,omitempty"`
	Empty  bool         `json:"empty"`
}

// Execute runs q against view. An empty filtered view is a successful,
// empty Result.
func Execute(q Query, view RecordView, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)

	if len(q.GroupBy) == 0 {
		return nil, fmt.Errorf("%s: %w", q.Title, ErrNoGroupBy)
	}
	measure := q.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}
	op := q.Op
	if op == "" {
		op = OpSum
	}

	filtered, err := Filter(view, q.Predicates...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Title, err)
	}

	cfg.Logger.Debug("pipeline filtered",
		zap.String("query", q.Title),
		zap.Int("rows_in", view.Len()),
		zap.Int("rows_out", filtered.Len()))

	result := &Result{Title: q.Title, Rows: filtered.Len()}

	groups := AggregateBy(filtered, q.GroupBy, measure, op)
	if q.Limit > 0 {
		groups = TopN(groups, q.Limit)
		if q.SortBy != "" && q.SortBy != SortValueDesc {
			SortGroups(groups, q.SortBy)
		}
	} else {
		SortGroups(groups, q.SortBy)
	}

	result.Groups = groups
	result.Empty = len(groups) == 0
	if result.Empty {
		return result, nil
	}

	xAxis := q.XAxis
	if xAxis == "" {
		xAxis = LabelForField(q.GroupBy[0])
	}
	yAxis := q.YAxis
	if yAxis == "" {
		yAxis = LabelForOp(op)
	}
	result.Chart = BuildChart(ChartSpec{Kind: q.Chart, Title: q.Title, XAxis: xAxis, YAxis: yAxis}, groups)

	cfg.Logger.Debug("pipeline aggregated",
		zap.String("query", q.Title),
		zap.Int("groups", len(groups)))

	return result, nil
}
