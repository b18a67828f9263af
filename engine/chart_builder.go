package engine

// ============================================================================
// CHART BUILDER — Produces ChartConfig from aggregated groups
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// ChartSpec names what a chart shows.
type ChartSpec struct {
	Kind  ChartKind
	Title string
	XAxis string
	YAxis string
}

// BuildChart produces a ChartConfig from groups. Groups with SubGroups
// produce one series per distinct sub-key (stacked bars); otherwise a single
// series. Returns nil for no groups so callers render an empty state.
func BuildChart(spec ChartSpec, groups []Group) *ChartConfig {
	if len(groups) == 0 {
		return nil
	}

	kind := spec.Kind
	if kind == "" {
		kind = KindBar
	}

	config := &ChartConfig{
		ChartType:  kind,
		Title:      spec.Title,
		XAxis:      spec.XAxis,
		YAxis:      spec.YAxis,
		ShowLegend: true,
		ShowGrid:   kind != KindPie && kind != KindWordCloud,
	}

	if hasSubGroups(groups) {
		config.Series = buildMultiSeries(groups)
	} else {
		config.Series = buildSingleSeries(groups, spec.Title)
	}

	// Pie slices are colored individually.
	if kind == KindPie {
		config.Colors = assignColors(len(groups))
	} else {
		config.Colors = assignColors(len(config.Series))
	}
	return config
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

func buildSingleSeries(groups []Group, seriesName string) []ChartSeries {
	if seriesName == "" {
		seriesName = "Value"
	}

	points := make([]ChartPoint, 0, len(groups))
	for _, g := range groups {
		points = append(points, ChartPoint{
			Label: g.Label,
			Value: RoundTo2(g.Value),
		})
	}

	return []ChartSeries{{
		Name: seriesName,
		Data: points,
	}}
}

// buildMultiSeries emits sub-keys in first-encountered order so output is
// deterministic.
func buildMultiSeries(groups []Group) []ChartSeries {
	var subKeys []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			if !seen[sg.Key] {
				seen[sg.Key] = true
				subKeys = append(subKeys, sg.Key)
			}
		}
	}

	seriesMap := make(map[string][]ChartPoint, len(subKeys))
	for _, g := range groups {
		sgLookup := make(map[string]float64)
		for _, sg := range g.SubGroups {
			sgLookup[sg.Key] = sg.Value
		}
		for _, key := range subKeys {
			seriesMap[key] = append(seriesMap[key], ChartPoint{
				Label: g.Label,
				Value: RoundTo2(sgLookup[key]),
			})
		}
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		series = append(series, ChartSeries{
			Name:  key,
			Data:  seriesMap[key],
			Color: defaultColors[i%len(defaultColors)],
		})
	}
	return series
}

func hasSubGroups(groups []Group) bool {
	for _, g := range groups {
		if len(g.SubGroups) > 0 {
			return true
		}
	}
	return false
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
