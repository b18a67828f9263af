package engine

// ── Test Data ─────────────────────────────────────────────────────────────────

func rec(dims map[string]string, meas map[string]float64) Record {
	if dims == nil {
		dims = map[string]string{}
	}
	if meas == nil {
		meas = map[string]float64{}
	}
	return Record{Dimensions: dims, Measures: meas}
}

// grantsView is the two-row grant table used across the pipeline examples.
func grantsView() RecordView {
	return NewTableView([]Record{
		rec(map[string]string{"GrantNumber": "G-1", "Institute": "ETHZ", "MainDiscipline": "Biology"},
			map[string]float64{"CallDecisionYear": 2018, "AmountGrantedAllSets": 50000}),
		rec(map[string]string{"GrantNumber": "G-2", "Institute": "UZH", "MainDiscipline": "Physics"},
			map[string]float64{"CallDecisionYear": 2020, "AmountGrantedAllSets": 120000}),
	}, []string{"GrantNumber", "Institute", "MainDiscipline"}, []string{"CallDecisionYear", "AmountGrantedAllSets"})
}

// wideGrantsView adds a row with a missing amount (G-3) and one with a
// missing institute (G-4).
func wideGrantsView() RecordView {
	return NewTableView([]Record{
		rec(map[string]string{"GrantNumber": "G-1", "Institute": "ETHZ"},
			map[string]float64{"CallDecisionYear": 2018, "AmountGrantedAllSets": 50000}),
		rec(map[string]string{"GrantNumber": "G-2", "Institute": "UZH"},
			map[string]float64{"CallDecisionYear": 2020, "AmountGrantedAllSets": 120000}),
		rec(map[string]string{"GrantNumber": "G-3", "Institute": "ETHZ"},
			map[string]float64{"CallDecisionYear": 2020}),
		rec(map[string]string{"GrantNumber": "G-4"},
			map[string]float64{"CallDecisionYear": 2021, "AmountGrantedAllSets": 30000}),
		rec(map[string]string{"GrantNumber": "G-5", "Institute": "EPFL"},
			map[string]float64{"CallDecisionYear": 2019, "AmountGrantedAllSets": 120000}),
	}, []string{"GrantNumber", "Institute"}, []string{"CallDecisionYear", "AmountGrantedAllSets"})
}

func column(view RecordView, key string) []string {
	out := make([]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		s, _ := FieldText(view, i, key)
		out = append(out, s)
	}
	return out
}

func groupMap(groups []Group) map[string]float64 {
	m := make(map[string]float64, len(groups))
	for _, g := range groups {
		m[g.Key] = g.Value
	}
	return m
}

func groupKeys(groups []Group) []string {
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	return keys
}

func sumValues(groups []Group) float64 {
	var total float64
	for _, g := range groups {
		total += g.Value
	}
	return total
}
