package engine

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// Grouping produces SubViews (index lists into parent view) in
// first-encountered order. Rows with a missing group key are dropped.
// ============================================================================

// Aggregate groups view by groupKey and reduces measure with op.
// Groups appear in first-encountered order. An empty view yields nil.
func Aggregate(view RecordView, groupKey, measure string, op Op) []Group {
	if view.Len() == 0 {
		return nil
	}
	groups := groupBySingle(view, groupKey)
	for i := range groups {
		aggregateGroup(&groups[i], measure, op)
	}
	return groups
}

// AggregateBy groups by up to two keys. The second key produces SubGroups
// within each primary group; the primary Value is the reduction of the whole
// primary group.
func AggregateBy(view RecordView, groupBy []string, measure string, op Op) []Group {
	if view.Len() == 0 || len(groupBy) == 0 {
		return nil
	}
	var groups []Group
	if len(groupBy) == 1 {
		groups = groupBySingle(view, groupBy[0])
	} else {
		groups = groupByMulti(view, groupBy)
	}
	for i := range groups {
		aggregateGroup(&groups[i], measure, op)
		for j := range groups[i].SubGroups {
			aggregateGroup(&groups[i].SubGroups[j], measure, op)
		}
	}
	return groups
}

// TopN returns the n largest groups by value, descending. Ties keep their
// input order. The input slice is not modified.
func TopN(groups []Group, n int) []Group {
	if n <= 0 || len(groups) == 0 {
		return nil
	}
	out := make([]Group, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ============================================================================
// GROUPING
// ============================================================================

func groupBySingle(view RecordView, key string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		k, ok := FieldText(view, i, key)
		if !ok {
			continue
		}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], i)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		groups = append(groups, Group{
			Key:   k,
			Label: k,
			View:  newSubView(view, grouped[k]),
		})
	}
	return groups
}

func groupByMulti(view RecordView, keys []string) []Group {
	primary := groupBySingle(view, keys[0])
	for i := range primary {
		primary[i].SubGroups = groupBySingle(primary[i].View, keys[1])
	}
	return primary
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(group *Group, measure string, op Op) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}

	switch op {
	case OpSum:
		group.Value = SumMeasure(group.View, measure)
	case OpCount:
		group.Value = float64(group.Count)
	case OpDistinct:
		group.Value = float64(CountDistinct(group.View, measure))
	default:
		group.Value = SumMeasure(group.View, measure)
	}
}

// SumMeasure sums a numeric field across a view, skipping missing values.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		if v, ok := FieldNumber(view, i, measure); ok {
			total += v
		}
	}
	return total
}

// CountDistinct counts distinct non-missing text values of a field.
func CountDistinct(view RecordView, field string) int {
	return len(UniqueValues(view, field))
}

// UniqueValues returns distinct non-empty values of a field in
// first-encountered order.
func UniqueValues(view RecordView, field string) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val, ok := FieldText(view, i, field)
		if ok && val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// NumericBounds returns the min and max of a numeric field. ok is false
// when no row has a value.
func NumericBounds(view RecordView, field string) (lo, hi float64, ok bool) {
	for i := 0; i < view.Len(); i++ {
		v, present := FieldNumber(view, i, field)
		if !present {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// ============================================================================
// SORTING
// ============================================================================

// Sort modes for SortGroups.
const (
	SortValueDesc = "value_desc"
	SortValueAsc  = "value_asc"
	SortKeyAsc    = "key_asc"
	SortLabelAsc  = "label_asc"
)

// SortGroups sorts groups in place. Sorting is stable so equal elements keep
// their first-encountered order. Unknown modes leave the order unchanged.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case SortValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case SortValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case SortKeyAsc:
		sort.SliceStable(groups, func(i, j int) bool { return keyLess(groups[i].Key, groups[j].Key) })
	case SortLabelAsc:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].Label) < strings.ToLower(groups[j].Label)
		})
	}
}

// keyLess orders numeric keys numerically and places them before text keys.
func keyLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
