package engine

// ============================================================================
// JOIN — Inner Join on a Shared Key via RecordView
// ============================================================================
// Builds a hash index of the right side, then walks the left side in order.
// The result is a JoinedView holding (left, right) index pairs — zero copy.
// Many-to-many keys fan out: one output row per matching pair.
// ============================================================================

// JoinedView is the inner join of two views. Columns declared by the left
// view are read from the left row; all other columns from the right row.
type JoinedView struct {
	left, right RecordView
	pairs       [][2]int
	leftDims    map[string]bool
	leftMeas    map[string]bool
	dimKeys     []string
	mesKeys     []string
}

// Join returns the inner join of left and right where left[leftKey] equals
// right[rightKey] as text. Keys are not normalized: "12.0" does not match
// "12" and "1" does not match "G-1"; callers align key formats first. Rows
// with a missing key never match. Output order is left row order, then
// right row order within each left row.
func Join(left, right RecordView, leftKey, rightKey string) RecordView {
	index := make(map[string][]int, right.Len())
	for j := 0; j < right.Len(); j++ {
		k, ok := FieldText(right, j, rightKey)
		if !ok {
			continue
		}
		index[k] = append(index[k], j)
	}

	var pairs [][2]int
	for i := 0; i < left.Len(); i++ {
		k, ok := FieldText(left, i, leftKey)
		if !ok {
			continue
		}
		for _, j := range index[k] {
			pairs = append(pairs, [2]int{i, j})
		}
	}

	v := &JoinedView{
		left:     left,
		right:    right,
		pairs:    pairs,
		leftDims: make(map[string]bool),
		leftMeas: make(map[string]bool),
	}
	for _, k := range left.DimensionKeys() {
		v.leftDims[k] = true
		v.dimKeys = append(v.dimKeys, k)
	}
	for _, k := range left.MeasureKeys() {
		v.leftMeas[k] = true
		v.mesKeys = append(v.mesKeys, k)
	}
	for _, k := range right.DimensionKeys() {
		if !v.leftDims[k] && !v.leftMeas[k] {
			v.dimKeys = append(v.dimKeys, k)
		}
	}
	for _, k := range right.MeasureKeys() {
		if !v.leftMeas[k] && !v.leftDims[k] {
			v.mesKeys = append(v.mesKeys, k)
		}
	}
	return v
}

// JoinOn joins two views on a key with the same name on both sides.
func JoinOn(left, right RecordView, key string) RecordView {
	return Join(left, right, key, key)
}

func (v *JoinedView) Len() int { return len(v.pairs) }

func (v *JoinedView) Dimension(i int, key string) (string, bool) {
	if i < 0 || i >= len(v.pairs) {
		return "", false
	}
	if v.leftDims[key] || v.leftMeas[key] {
		return v.left.Dimension(v.pairs[i][0], key)
	}
	return v.right.Dimension(v.pairs[i][1], key)
}

func (v *JoinedView) Measure(i int, key string) (float64, bool) {
	if i < 0 || i >= len(v.pairs) {
		return 0, false
	}
	if v.leftDims[key] || v.leftMeas[key] {
		return v.left.Measure(v.pairs[i][0], key)
	}
	return v.right.Measure(v.pairs[i][1], key)
}

func (v *JoinedView) DimensionKeys() []string { return v.dimKeys }
func (v *JoinedView) MeasureKeys() []string   { return v.mesKeys }
