package pages

import (
	"github.com/spektr-org/grantlens/engine"
)

func diversityWidgets(r *Registry) []Widget {
	grants := r.data.Grants()
	yearLo, yearHi := bounds(grants, "CallDecisionYear")
	fundLo, fundHi := bounds(grants, fundingMeasure)
	return []Widget{
		Select("gender", "Select Gender", AllOr(engine.UniqueValues(r.data.Persons(), "Gender")), engine.All),
		RangeSlider("year", "Select Year Range", yearLo, yearHi),
		RangeSlider("funding", "Total Funding (CHF) Range", fundLo, fundHi),
	}
}

// buildDiversity splits funding by researcher gender. The gender
// distribution covers every person; the funding panels follow the filters.
func buildDiversity(r *Registry, vals Values) (*Page, error) {
	ds := r.data
	yearLo, yearHi := vals.Range("year")
	fundLo, fundHi := vals.Range("funding")

	distribution := engine.Aggregate(ds.Persons(), "Gender", "", engine.OpCount)
	engine.SortGroups(distribution, engine.SortValueDesc)
	pie := groupsPanel("Gender Distribution of Researchers", engine.KindPie, "Gender", "Researchers",
		distribution, "No researchers with a recorded gender.")

	withGrant := engine.JoinOn(ds.GrantPersons(),
		engine.Project(ds.Grants(), []string{"GrantNumber"}, []string{fundingMeasure, "CallDecisionYear"}), "GrantNumber")
	merged := engine.JoinOn(withGrant, engine.Project(ds.Persons(), []string{"PersonNumber", "Gender"}, nil), "PersonNumber")

	filters := []engine.Predicate{
		engine.Range("CallDecisionYear", yearLo, yearHi),
		engine.Range(fundingMeasure, fundLo, fundHi),
		engine.Equals("Gender", vals.Text("gender")),
	}

	page := &Page{Panels: []Panel{pie}}
	for _, q := range []engine.Query{
		{
			Title:      "Yearly Funding by Gender",
			Predicates: filters,
			GroupBy:    []string{"CallDecisionYear", "Gender"},
			Op:         engine.OpSum,
			SortBy:     engine.SortKeyAsc,
			Chart:      engine.KindStackedBar,
			XAxis:      "Year",
			YAxis:      "Funding (CHF)",
		},
		{
			Title:      "Total Funding by Gender",
			Predicates: filters,
			GroupBy:    []string{"Gender"},
			Op:         engine.OpSum,
			SortBy:     engine.SortLabelAsc,
			Chart:      engine.KindBar,
			XAxis:      "Gender",
			YAxis:      "Total Funding (CHF)",
		},
	} {
		p, err := r.chartPanel(q, merged, noGrantsMessage)
		if err != nil {
			return nil, err
		}
		page.Panels = append(page.Panels, p)
	}
	return page, nil
}
