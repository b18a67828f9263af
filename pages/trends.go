package pages

import (
	"github.com/spektr-org/grantlens/engine"
)

const noGrantsMessage = "No grants match the current filters."

func trendsWidgets(r *Registry) []Widget {
	grants := r.data.Grants()
	yearLo, yearHi := bounds(grants, "CallDecisionYear")
	_, fundHi := bounds(grants, fundingMeasure)
	return []Widget{
		RangeSlider("year", "Select Year Range", yearLo, yearHi),
		RangeSlider("funding", "Funding Amount (CHF)", 0, fundHi),
		Select("discipline", "Select Discipline", AllOr(engine.UniqueValues(grants, "MainDiscipline")), engine.All),
		Select("institution", "Select Institution", AllOr(engine.UniqueValues(grants, "Institute")), engine.All),
	}
}

// buildTrends charts grant counts and funding over time for the filtered
// grants, and ranks researchers, institutions and disciplines by funding.
// The researcher ranking covers every grant regardless of filters.
func buildTrends(r *Registry, vals Values) (*Page, error) {
	ds := r.data
	yearLo, yearHi := vals.Range("year")
	fundLo, fundHi := vals.Range("funding")

	filtered, err := engine.Filter(ds.Grants(),
		engine.Range("CallDecisionYear", yearLo, yearHi),
		engine.Range(fundingMeasure, fundLo, fundHi),
		engine.Equals("MainDiscipline", vals.Text("discipline")),
		engine.Equals("Institute", vals.Text("institution")),
	)
	if err != nil {
		return nil, err
	}

	queries := []struct {
		q    engine.Query
		view engine.RecordView
	}{
		{engine.Query{
			Title:   "Grants Awarded per Year",
			GroupBy: []string{"CallDecisionYear"},
			Op:      engine.OpCount,
			SortBy:  engine.SortKeyAsc,
			Chart:   engine.KindBar,
			XAxis:   "Year",
			YAxis:   "Grants",
		}, filtered},
		{engine.Query{
			Title:   "Total Funding per Year",
			GroupBy: []string{"CallDecisionYear"},
			Op:      engine.OpSum,
			SortBy:  engine.SortKeyAsc,
			Chart:   engine.KindLine,
			XAxis:   "Year",
			YAxis:   "Funding (CHF)",
		}, filtered},
		{engine.Query{
			Title:   "Top Funded Researchers",
			GroupBy: []string{"FullName"},
			Op:      engine.OpSum,
			Limit:   r.topN,
			Chart:   engine.KindBar,
			XAxis:   "Researcher",
			YAxis:   "Funding (CHF)",
		}, researcherFunding(ds.GrantPersons(), ds.Grants(), ds.Persons())},
		{engine.Query{
			Title:   "Top Funded Institutions",
			GroupBy: []string{"Institute"},
			Op:      engine.OpSum,
			Limit:   r.topN,
			Chart:   engine.KindBar,
			XAxis:   "Institution",
			YAxis:   "Funding (CHF)",
		}, filtered},
		{engine.Query{
			Title:   "Funding by Discipline",
			GroupBy: []string{"Discipline"},
			Op:      engine.OpSum,
			Limit:   r.topN,
			Chart:   engine.KindBar,
			XAxis:   "Discipline",
			YAxis:   "Funding (CHF)",
		}, disciplineFunding(filtered, ds.GrantDisciplines(), ds.Disciplines())},
	}

	page := &Page{}
	for _, item := range queries {
		p, err := r.chartPanel(item.q, item.view, noGrantsMessage)
		if err != nil {
			return nil, err
		}
		page.Panels = append(page.Panels, p)
	}
	return page, nil
}

// disciplineFunding resolves each grant's disciplines through the
// Grant↔Discipline association. A grant with several disciplines counts its
// full amount towards each.
func disciplineFunding(grants, links, disciplines engine.RecordView) engine.RecordView {
	withLink := engine.JoinOn(engine.Project(grants, []string{"GrantNumber"}, []string{fundingMeasure}), links, "GrantNumber")
	return engine.Join(withLink, disciplines, "DisciplineId", "Id")
}
