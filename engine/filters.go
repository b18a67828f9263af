package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// FILTERS — Predicate Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL predicates per record in one loop.
// Returns a SubView (index list into parent) — zero data copy, parent order.
// ============================================================================

// All is the sentinel selection meaning "do not restrict on this field".
const All = "All"

// ErrInvalidRange is returned when a range predicate has low > high.
var ErrInvalidRange = errors.New("invalid range")

// Predicate decides whether row i of a view is kept.
type Predicate interface {
	Match(view RecordView, i int) bool
}

// Validator is implemented by predicates whose parameters can be invalid.
type Validator interface {
	Validate() error
}

// RangePredicate keeps rows whose numeric field lies in [Low, High].
type RangePredicate struct {
	Field string
	Low   float64
	High  float64
}

// Range returns an inclusive numeric range predicate.
func Range(field string, low, high float64) RangePredicate {
	return RangePredicate{Field: field, Low: low, High: high}
}

func (p RangePredicate) Match(view RecordView, i int) bool {
	v, ok := FieldNumber(view, i, p.Field)
	if !ok {
		return false
	}
	return v >= p.Low && v <= p.High
}

func (p RangePredicate) Validate() error {
	if p.Low > p.High {
		return fmt.Errorf("%w: %s low %g > high %g", ErrInvalidRange, p.Field, p.Low, p.High)
	}
	return nil
}

// AtLeastPredicate keeps rows whose numeric field is >= Min.
type AtLeastPredicate struct {
	Field string
	Min   float64
}

// AtLeast returns an open-ended lower-bound predicate.
func AtLeast(field string, min float64) AtLeastPredicate {
	return AtLeastPredicate{Field: field, Min: min}
}

func (p AtLeastPredicate) Match(view RecordView, i int) bool {
	v, ok := FieldNumber(view, i, p.Field)
	return ok && v >= p.Min
}

// EqualsPredicate keeps rows whose field text equals Value exactly.
// Value == All matches every row, including rows with a missing field.
type EqualsPredicate struct {
	Field string
	Value string
}

// Equals returns an exact categorical match predicate.
func Equals(field, value string) EqualsPredicate {
	return EqualsPredicate{Field: field, Value: value}
}

func (p EqualsPredicate) Match(view RecordView, i int) bool {
	if p.Value == All {
		return true
	}
	v, ok := FieldText(view, i, p.Field)
	return ok && v == p.Value
}

// OneOfPredicate keeps rows whose field text is in a set.
type OneOfPredicate struct {
	Field  string
	values map[string]struct{}
}

// OneOf returns a set membership predicate. An empty set matches nothing.
func OneOf(field string, values ...string) OneOfPredicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return OneOfPredicate{Field: field, values: set}
}

func (p OneOfPredicate) Match(view RecordView, i int) bool {
	v, ok := FieldText(view, i, p.Field)
	if !ok {
		return false
	}
	_, hit := p.values[v]
	return hit
}

// ContainsPredicate keeps rows whose field contains Substr, ignoring case.
type ContainsPredicate struct {
	Field  string
	Substr string
}

// Contains returns a case-insensitive substring predicate. An empty
// substring matches every row.
func Contains(field, substr string) ContainsPredicate {
	return ContainsPredicate{Field: field, Substr: strings.ToLower(substr)}
}

func (p ContainsPredicate) Match(view RecordView, i int) bool {
	if p.Substr == "" {
		return true
	}
	v, ok := FieldText(view, i, p.Field)
	return ok && strings.Contains(strings.ToLower(v), p.Substr)
}

// Filter returns a view of rows matching every predicate, in input order.
// No predicates returns the original view.
func Filter(view RecordView, preds ...Predicate) (RecordView, error) {
	for _, p := range preds {
		if v, ok := p.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
	}
	if len(preds) == 0 {
		return view, nil
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, p := range preds {
			if !p.Match(view, i) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices), nil
}
