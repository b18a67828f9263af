package engine

// ============================================================================
// GRANTLENS ENGINE TYPES — Schema-Agnostic Table Pipeline
// ============================================================================
// Every table in the dataset is a sequence of Records read through a
// RecordView. Operations (filter, join, derive, aggregate) never mutate their
// input; each returns a new view or a new slice of Groups.
//
// A key that is absent from a Record's maps is a missing value. Missing
// values never panic: range predicates, equality predicates and join keys
// all treat them as "no match".
// ============================================================================

// Record is a single data row with text dimensions and numeric measures.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// Op names an aggregation.
type Op string

const (
	OpSum      Op = "sum"
	OpCount    Op = "count"
	OpDistinct Op = "distinct"
)

// Group is one entry of an aggregation result.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"` // rows of this group (zero-copy)
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartKind is the rendering hint handed to the presentation layer.
type ChartKind string

const (
	KindBar        ChartKind = "bar"
	KindLine       ChartKind = "line"
	KindPie        ChartKind = "pie"
	KindStackedBar ChartKind = "stacked_bar"
	KindWordCloud  ChartKind = "wordcloud"
	KindImage      ChartKind = "image"
	KindTable      ChartKind = "table"
)

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  ChartKind     `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "right"
}
