package pages

import (
	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/tagger"
)

// NoAIGrantsMessage is the empty state of the AI Insights page.
const NoAIGrantsMessage = "No AI-related grants found."

func aiWidgets(r *Registry) []Widget {
	grants := r.data.Grants()
	yearLo, yearHi := bounds(grants, "CallDecisionYear")
	fundLo, fundHi := bounds(grants, fundingMeasure)
	return []Widget{
		RangeSlider("year", "Select Year Range", yearLo, yearHi),
		RangeSlider("funding", "Funding Amount (CHF)", fundLo, fundHi),
		Checkbox("show_keywords", "Show Matched AI Keywords", false),
	}
}

// TagAI tags the dataset's grants with the registry's AI terms.
func (r *Registry) TagAI() (tagger.GrantSet, error) {
	ds := r.data
	return r.tagger.TagGrants(ds.Keywords(), ds.GrantKeywords(), ds.Grants())
}

// buildAI charts funding and researchers for grants whose keywords mention
// AI terms. Grants without a year or amount are dropped before filtering.
func buildAI(r *Registry, vals Values) (*Page, error) {
	ds := r.data
	set, err := r.TagAI()
	if err != nil {
		return nil, err
	}
	page := &Page{}

	if vals.Checked("show_keywords") {
		page.Panels = append(page.Panels, Panel{
			Title: "Matched AI Keywords",
			Kind:  engine.KindTable,
			Table: engine.BuildTable("Matched AI Keywords", set.Keywords, tagger.KeywordID, "word"),
		})
	}

	if set.Empty() {
		page.Panels = append(page.Panels, Panel{
			Title:        "AI Funding Over Time",
			Kind:         engine.KindLine,
			Empty:        true,
			EmptyMessage: NoAIGrantsMessage,
		})
		return page, nil
	}

	yearLo, yearHi := vals.Range("year")
	fundLo, fundHi := vals.Range("funding")
	aiGrants, err := engine.Filter(set.Grants,
		engine.Range("CallDecisionYear", yearLo, yearHi),
		engine.Range(fundingMeasure, fundLo, fundHi),
	)
	if err != nil {
		return nil, err
	}

	page.Metrics = []engine.Metric{
		engine.BuildMetric("Total AI Grants Found", aiGrants, "GrantNumber", engine.OpCount, ""),
	}

	trend, err := r.chartPanel(engine.Query{
		Title:   "AI Funding Over Time",
		GroupBy: []string{"CallDecisionYear"},
		Op:      engine.OpSum,
		SortBy:  engine.SortKeyAsc,
		Chart:   engine.KindLine,
		XAxis:   "Year",
		YAxis:   "Funding (CHF)",
	}, aiGrants, noGrantsMessage)
	if err != nil {
		return nil, err
	}

	researchers, err := r.chartPanel(engine.Query{
		Title:   "Top AI Researchers by Total AI Funding",
		GroupBy: []string{"FullName"},
		Op:      engine.OpSum,
		Limit:   r.topN,
		Chart:   engine.KindBar,
		XAxis:   "Researcher",
		YAxis:   "Total AI Funding (CHF)",
	}, researcherFunding(ds.GrantPersons(), aiGrants, ds.Persons()), noGrantsMessage)
	if err != nil {
		return nil, err
	}

	page.Panels = append(page.Panels, trend, researchers)
	return page, nil
}
