package pages

import (
	"github.com/spektr-org/grantlens/engine"
)

// buildOverview reports headline totals over the unfiltered tables.
func buildOverview(r *Registry, _ Values) (*Page, error) {
	ds := r.data
	grants := ds.Grants()
	return &Page{
		Metrics: []engine.Metric{
			engine.BuildMetric("Total Grants", grants, "GrantNumber", engine.OpCount, ""),
			engine.BuildMetric("Total Funding (CHF)", grants, fundingMeasure, engine.OpSum, "CHF"),
			engine.BuildMetric("Total Researchers", ds.Persons(), "PersonNumber", engine.OpDistinct, ""),
			engine.BuildMetric("Total Institutions", ds.Institutes(), "InstituteNumber", engine.OpDistinct, ""),
		},
		Panels: []Panel{},
	}, nil
}
