package engine

import (
	"strconv"
	"strings"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never copies table data. It reads through this interface.
//
// Implementations:
//   SliceView      — owns []Record (CSV or SQL loaded tables)
//   SubView        — filtered or grouped subset (indices into parent)
//   JoinedView     — inner join result (index pairs into two parents)
//   DerivedView    — adds one computed dimension on read
//   DomainView[T]  — reads typed structs via accessor functions
// ============================================================================

// RecordView provides indexed access to a table.
// The boolean result is false when the value is missing.
type RecordView interface {
	Len() int
	Dimension(index int, key string) (string, bool)
	Measure(index int, key string) (float64, bool)
	DimensionKeys() []string
	MeasureKeys() []string
}

// ============================================================================
// SLICE VIEW
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
}

// NewSliceView creates a RecordView from records, inferring column keys.
func NewSliceView(records []Record) *SliceView {
	v := &SliceView{records: records}
	v.cacheKeys()
	return v
}

// NewTableView creates a RecordView with declared column keys. Columns that
// are missing in every row still appear in DimensionKeys/MeasureKeys.
func NewTableView(records []Record, dimKeys, mesKeys []string) *SliceView {
	return &SliceView{records: records, dimKeys: dimKeys, mesKeys: mesKeys}
}

func (v *SliceView) cacheKeys() {
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	for _, r := range v.records {
		for k := range r.Dimensions {
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for k := range r.Measures {
			if !mesSeen[k] {
				mesSeen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= len(v.records) {
		return "", false
	}
	val, ok := v.records[i].Dimensions[key]
	return val, ok
}

func (v *SliceView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.records) {
		return 0, false
	}
	val, ok := v.records[i].Measures[key]
	return val, ok
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a subset of a parent RecordView in parent order.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

// Select returns the rows of view at indices, in the given order.
func Select(view RecordView, indices []int) RecordView {
	return newSubView(view, indices)
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= len(v.indices) {
		return "", false
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.indices) {
		return 0, false
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// ============================================================================
// PROJECTED VIEW — column subset
// ============================================================================

type projectedView struct {
	parent RecordView
	dims   map[string]bool
	meas   map[string]bool
	dimOrd []string
	mesOrd []string
}

// Project narrows a view to the named columns. Unknown names are ignored.
func Project(view RecordView, dims []string, measures []string) RecordView {
	p := &projectedView{
		parent: view,
		dims:   make(map[string]bool, len(dims)),
		meas:   make(map[string]bool, len(measures)),
	}
	for _, k := range dims {
		if containsKey(view.DimensionKeys(), k) && !p.dims[k] {
			p.dims[k] = true
			p.dimOrd = append(p.dimOrd, k)
		}
	}
	for _, k := range measures {
		if containsKey(view.MeasureKeys(), k) && !p.meas[k] {
			p.meas[k] = true
			p.mesOrd = append(p.mesOrd, k)
		}
	}
	return p
}

func (v *projectedView) Len() int { return v.parent.Len() }

func (v *projectedView) Dimension(i int, key string) (string, bool) {
	if !v.dims[key] {
		return "", false
	}
	return v.parent.Dimension(i, key)
}

func (v *projectedView) Measure(i int, key string) (float64, bool) {
	if !v.meas[key] {
		return 0, false
	}
	return v.parent.Measure(i, key)
}

func (v *projectedView) DimensionKeys() []string { return v.dimOrd }
func (v *projectedView) MeasureKeys() []string   { return v.mesOrd }

// ============================================================================
// DERIVED VIEW — computed dimension on read (zero-copy)
// ============================================================================

// DeriveFunc computes a dimension for row i of the parent view.
type DeriveFunc func(view RecordView, i int) (string, bool)

// DerivedView wraps a RecordView and exposes one extra computed dimension.
// If the parent already has a dimension with the same key, the derived value
// shadows it.
type DerivedView struct {
	parent RecordView
	key    string
	fn     DeriveFunc
	keys   []string
}

// Derive adds a named derived dimension to a view.
func Derive(view RecordView, key string, fn DeriveFunc) RecordView {
	keys := append([]string(nil), view.DimensionKeys()...)
	if !containsKey(keys, key) {
		keys = append(keys, key)
	}
	return &DerivedView{parent: view, key: key, fn: fn, keys: keys}
}

func (v *DerivedView) Len() int { return v.parent.Len() }

func (v *DerivedView) Dimension(i int, key string) (string, bool) {
	if key == v.key {
		if i < 0 || i >= v.parent.Len() {
			return "", false
		}
		return v.fn(v.parent, i)
	}
	return v.parent.Dimension(i, key)
}

func (v *DerivedView) Measure(i int, key string) (float64, bool) {
	return v.parent.Measure(i, key)
}

func (v *DerivedView) DimensionKeys() []string { return v.keys }
func (v *DerivedView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// Concat builds a DeriveFunc joining text fields with sep. The result is
// missing when any part is missing.
func Concat(sep string, fields ...string) DeriveFunc {
	return func(view RecordView, i int) (string, bool) {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			s, ok := FieldText(view, i, f)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, sep), true
	}
}

// Lower builds a DeriveFunc returning the lowercased text of field.
func Lower(field string) DeriveFunc {
	return func(view RecordView, i int) (string, bool) {
		s, ok := FieldText(view, i, field)
		if !ok {
			return "", false
		}
		return strings.ToLower(s), true
	}
}

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[Group]().
//	    Dimension("word", func(g Group) (string, bool) { return g.Key, true }).
//	    Measure("frequency", func(g Group) (float64, bool) { return g.Value, true })
//
//	view := adapter.Bind(groups)
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder []string
	mesOrder []string
	dims     map[string]func(T) (string, bool)
	meas     map[string]func(T) (float64, bool)
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) (string, bool)),
		meas: make(map[string]func(T) (float64, bool)),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) (string, bool)) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) (float64, bool)) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Bind creates a RecordView from a data slice. Holds a reference, no copy.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{
		data:     data,
		dims:     a.dims,
		meas:     a.meas,
		dimKeys:  a.dimOrder,
		measKeys: a.mesOrder,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data     []T
	dims     map[string]func(T) (string, bool)
	meas     map[string]func(T) (float64, bool)
	dimKeys  []string
	measKeys []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= len(v.data) {
		return "", false
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.data[i])
	}
	return "", false
}

func (v *DomainView[T]) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.data) {
		return 0, false
	}
	if fn, ok := v.meas[key]; ok {
		return fn(v.data[i])
	}
	return 0, false
}

func (v *DomainView[T]) DimensionKeys() []string { return v.dimKeys }
func (v *DomainView[T]) MeasureKeys() []string   { return v.measKeys }

// GroupsView exposes aggregation groups as a table with a text column
// keyName and a numeric column valueName, so they can be filtered again.
func GroupsView(groups []Group, keyName, valueName string) RecordView {
	return NewDomainAdapter[Group]().
		Dimension(keyName, func(g Group) (string, bool) { return g.Key, true }).
		Measure(valueName, func(g Group) (float64, bool) { return g.Value, true }).
		Bind(groups)
}

// ============================================================================
// FIELD ACCESS
// ============================================================================

// FieldText reads a field as text: the dimension if present, otherwise the
// measure formatted without trailing zeros.
func FieldText(view RecordView, i int, field string) (string, bool) {
	if s, ok := view.Dimension(i, field); ok {
		return s, true
	}
	if f, ok := view.Measure(i, field); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// FieldNumber reads a field as a number: the measure if present, otherwise
// the dimension parsed as a float. Unparseable text is reported missing.
func FieldNumber(view RecordView, i int, field string) (float64, bool) {
	if f, ok := view.Measure(i, field); ok {
		return f, true
	}
	if s, ok := view.Dimension(i, field); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Rows materializes a view into records. Intended for tests and exports.
func Rows(view RecordView) []Record {
	out := make([]Record, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		rec := Record{Dimensions: map[string]string{}, Measures: map[string]float64{}}
		for _, k := range view.DimensionKeys() {
			if s, ok := view.Dimension(i, k); ok {
				rec.Dimensions[k] = s
			}
		}
		for _, k := range view.MeasureKeys() {
			if f, ok := view.Measure(i, k); ok {
				rec.Measures[k] = f
			}
		}
		out = append(out, rec)
	}
	return out
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
