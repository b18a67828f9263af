package engine

// ============================================================================
// TABLE BUILDER — Produces TableData from a view or from groups
// ============================================================================
// Column discovery uses view.DimensionKeys()/MeasureKeys() unless the caller
// names the columns explicitly. Missing values render as empty cells.
// ============================================================================

// BuildTable lists every row of view. columns selects and orders the
// columns; nil means all dimension keys followed by all measure keys.
func BuildTable(title string, view RecordView, columns ...string) *TableData {
	if len(columns) == 0 {
		columns = append(columns, view.DimensionKeys()...)
		columns = append(columns, view.MeasureKeys()...)
	}

	measureSet := make(map[string]bool)
	for _, k := range view.MeasureKeys() {
		measureSet[k] = true
	}

	cols := make([]Column, 0, len(columns))
	for _, key := range columns {
		col := Column{Key: key, Label: LabelForField(key), Type: "text", Align: "left"}
		if measureSet[key] {
			col.Type, col.Align = "number", "right"
		}
		cols = append(cols, col)
	}

	rows := make([][]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		row := make([]string, 0, len(columns))
		for _, key := range columns {
			s, _ := FieldText(view, i, key)
			row = append(row, s)
		}
		rows = append(rows, row)
	}

	return &TableData{Title: title, Columns: cols, Rows: rows}
}
