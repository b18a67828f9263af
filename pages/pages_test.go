package pages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spektr-org/grantlens/dataset"
	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/schema"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	ds, err := dataset.Load(context.Background(), dataset.Sample(), schema.Default())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(ds, opts...)
}

func render(t *testing.T, r *Registry, name string, raw map[string]string) *Page {
	t.Helper()
	page, err := r.Render(name, raw)
	require.NoError(t, err)
	return page
}

func panelByTitle(t *testing.T, page *Page, title string) Panel {
	t.Helper()
	for _, p := range page.Panels {
		if p.Title == title {
			return p
		}
	}
	require.Failf(t, "panel not found", "%q on page %q", title, page.Name)
	return Panel{}
}

// points flattens a single-series chart into label → value.
func points(t *testing.T, p Panel) ([]string, []float64) {
	t.Helper()
	require.False(t, p.Empty, p.EmptyMessage)
	require.NotNil(t, p.Chart)
	require.Len(t, p.Chart.Series, 1)
	var labels []string
	var values []float64
	for _, pt := range p.Chart.Series[0].Data {
		labels = append(labels, pt.Label)
		values = append(values, pt.Value)
	}
	return labels, values
}

func TestListPages(t *testing.T) {
	r := newTestRegistry(t)
	var names []string
	for _, s := range r.List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{Overview, Trends, Topics, Diversity, Collaboration, AIInsights}, names)
}

func TestRenderUnknownPage(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Render("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownPage)
	_, err = r.Widgets("nope")
	assert.ErrorIs(t, err, ErrUnknownPage)
}

func TestOverviewMetrics(t *testing.T) {
	page := render(t, newTestRegistry(t), Overview, nil)
	assert.Equal(t, "Welcome to the SNSF Explorer", page.Title)
	require.Len(t, page.Metrics, 4)

	got := make(map[string]string)
	for _, m := range page.Metrics {
		got[m.Title] = m.Value
	}
	assert.Equal(t, map[string]string{
		"Total Grants":        "6",
		"Total Funding (CHF)": "480,000",
		"Total Researchers":   "5",
		"Total Institutions":  "3",
	}, got)
	assert.Empty(t, page.Panels)
}

func TestTrendsDefaults(t *testing.T) {
	page := render(t, newTestRegistry(t), Trends, nil)
	assert.Equal(t, map[string]string{
		"year":        "2018,2022",
		"funding":     "0,200000",
		"discipline":  engine.All,
		"institution": engine.All,
	}, page.Selections)

	// The grant without an amount falls outside every funding range.
	labels, values := points(t, panelByTitle(t, page, "Grants Awarded per Year"))
	assert.Equal(t, []string{"2018", "2020", "2021", "2022"}, labels)
	assert.Equal(t, []float64{1, 2, 1, 1}, values)

	labels, values = points(t, panelByTitle(t, page, "Total Funding per Year"))
	assert.Equal(t, []string{"2018", "2020", "2021", "2022"}, labels)
	assert.Equal(t, []float64{50000, 200000, 200000, 30000}, values)

	labels, values = points(t, panelByTitle(t, page, "Top Funded Institutions"))
	assert.Equal(t, []string{"ETHZ", "UZH", "EPFL"}, labels)
	assert.Equal(t, []float64{250000, 120000, 80000}, values)

	labels, values = points(t, panelByTitle(t, page, "Funding by Discipline"))
	assert.Equal(t, []string{"Computer science", "Physics", "Biology", "Sociology"}, labels)
	assert.Equal(t, []float64{280000, 120000, 50000, 30000}, values)
}

func TestTrendsResearchersIgnoreFilters(t *testing.T) {
	r := newTestRegistry(t)
	all := panelByTitle(t, render(t, r, Trends, nil), "Top Funded Researchers")
	narrowed := panelByTitle(t, render(t, r, Trends, map[string]string{
		"year":       "2018,2018",
		"discipline": "Biology",
	}), "Top Funded Researchers")
	assert.Equal(t, all.Chart, narrowed.Chart)

	labels, values := points(t, all)
	assert.Equal(t, []string{"Grace Hopper", "Niklaus Wirth", "Alan Turing", "Ada Lovelace", "Kim Doe"}, labels)
	assert.Equal(t, []float64{280000, 200000, 120000, 80000, 0}, values)
}

func TestTrendsTopNLimitsRankings(t *testing.T) {
	page := render(t, newTestRegistry(t, WithTopN(2)), Trends, nil)
	labels, _ := points(t, panelByTitle(t, page, "Top Funded Researchers"))
	assert.Equal(t, []string{"Grace Hopper", "Niklaus Wirth"}, labels)
}

func TestTrendsFilters(t *testing.T) {
	r := newTestRegistry(t)
	page := render(t, r, Trends, map[string]string{"discipline": "Computer science"})
	labels, values := points(t, panelByTitle(t, page, "Grants Awarded per Year"))
	assert.Equal(t, []string{"2020", "2021"}, labels)
	assert.Equal(t, []float64{1, 1}, values)

	page = render(t, r, Trends, map[string]string{"funding": "0,0"})
	for _, p := range page.Panels {
		if p.Title == "Top Funded Researchers" {
			continue
		}
		assert.True(t, p.Empty, p.Title)
		assert.Equal(t, noGrantsMessage, p.EmptyMessage)
		assert.Nil(t, p.Chart)
	}
}

func TestTrendsRejectsBadSelections(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Render(Trends, map[string]string{"year": "2021,2018"})
	assert.ErrorIs(t, err, engine.ErrInvalidRange)

	_, err = r.Render(Trends, map[string]string{"discipline": "Alchemy"})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestTopics(t *testing.T) {
	r := newTestRegistry(t)

	page := render(t, r, Topics, nil)
	bar := panelByTitle(t, page, "Top 20 Keywords in Funded Research")
	assert.True(t, bar.Empty)
	assert.Equal(t, "No keywords match the current filters.", bar.EmptyMessage)
	cloud := panelByTitle(t, page, "Word Cloud of All Keywords")
	assert.True(t, cloud.Empty)
	assert.Equal(t, "Not enough keywords to generate a word cloud. Try changing your filters.", cloud.EmptyMessage)

	page = render(t, r, Topics, map[string]string{"min_freq": "2", "top_n": "5"})
	labels, values := points(t, panelByTitle(t, page, "Top 5 Keywords in Funded Research"))
	assert.Equal(t, []string{"machine learning", "gender studies"}, labels)
	assert.Equal(t, []float64{3, 2}, values)
	cloud = panelByTitle(t, page, "Word Cloud of All Keywords")
	assert.Equal(t, []WordWeight{{"machine learning", 3}, {"gender studies", 2}}, cloud.Words)

	page = render(t, r, Topics, map[string]string{"min_freq": "1", "search": "GENDER"})
	labels, _ = points(t, panelByTitle(t, page, "Top 20 Keywords in Funded Research"))
	assert.ElementsMatch(t, []string{"gender studies", "gender equality"}, labels)
}

func TestTopicsRejectsNonFiniteSelections(t *testing.T) {
	r := newTestRegistry(t)
	for _, raw := range []map[string]string{
		{"top_n": "NaN"},
		{"min_freq": "-Inf"},
	} {
		assert.NotPanics(t, func() {
			_, err := r.Render(Topics, raw)
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}

	_, err := r.Render(Trends, map[string]string{"year": "NaN,NaN"})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDiversity(t *testing.T) {
	r := newTestRegistry(t)
	page := render(t, r, Diversity, nil)

	widgets, err := r.Widgets(Diversity)
	require.NoError(t, err)
	assert.Equal(t, []string{engine.All, "female", "male"}, widgets[0].Options)

	labels, values := points(t, panelByTitle(t, page, "Gender Distribution of Researchers"))
	assert.Equal(t, []string{"female", "male"}, labels)
	assert.Equal(t, []float64{2, 2}, values)

	labels, values = points(t, panelByTitle(t, page, "Total Funding by Gender"))
	assert.Equal(t, []string{"female", "male"}, labels)
	assert.Equal(t, []float64{360000, 320000}, values)

	stacked := panelByTitle(t, page, "Yearly Funding by Gender")
	require.NotNil(t, stacked.Chart)
	assert.Equal(t, engine.KindStackedBar, stacked.Chart.ChartType)
	require.Len(t, stacked.Chart.Series, 2)
	series := make(map[string][]float64)
	for _, s := range stacked.Chart.Series {
		for _, pt := range s.Data {
			series[s.Name] = append(series[s.Name], pt.Value)
		}
	}
	assert.Equal(t, []float64{50000, 80000, 200000, 30000}, series["female"])
	assert.Equal(t, []float64{0, 120000, 200000, 0}, series["male"])
}

func TestDiversityGenderFilter(t *testing.T) {
	r := newTestRegistry(t)
	page := render(t, r, Diversity, map[string]string{"gender": "male"})

	labels, values := points(t, panelByTitle(t, page, "Total Funding by Gender"))
	assert.Equal(t, []string{"male"}, labels)
	assert.Equal(t, []float64{320000}, values)

	// The distribution covers every researcher regardless of filters.
	_, values = points(t, panelByTitle(t, page, "Gender Distribution of Researchers"))
	assert.Equal(t, []float64{2, 2}, values)
}

func TestCollaboration(t *testing.T) {
	page := render(t, newTestRegistry(t), Collaboration, nil)
	require.Len(t, page.Panels, 1)
	assert.True(t, page.Panels[0].Empty)
	assert.Contains(t, page.Panels[0].Description, "top 100 researchers")

	page = render(t, newTestRegistry(t, WithNetworkImage("/data/sna1.png")), Collaboration, nil)
	p := page.Panels[0]
	assert.False(t, p.Empty)
	assert.Equal(t, engine.KindImage, p.Kind)
	assert.Equal(t, NetworkImageURL, p.Image)
	assert.Equal(t, "/data/sna1.png", p.Asset)
}

func TestAIInsights(t *testing.T) {
	r := newTestRegistry(t)
	page := render(t, r, AIInsights, nil)

	require.Len(t, page.Metrics, 1)
	assert.Equal(t, "Total AI Grants Found", page.Metrics[0].Title)
	assert.Equal(t, "2", page.Metrics[0].Value)

	labels, values := points(t, panelByTitle(t, page, "AI Funding Over Time"))
	assert.Equal(t, []string{"2020", "2021"}, labels)
	assert.Equal(t, []float64{80000, 200000}, values)

	labels, values = points(t, panelByTitle(t, page, "Top AI Researchers by Total AI Funding"))
	assert.Equal(t, []string{"Grace Hopper", "Niklaus Wirth"}, labels)
	assert.Equal(t, []float64{280000, 200000}, values)

	for _, p := range page.Panels {
		assert.NotEqual(t, engine.KindTable, p.Kind, "keyword table is off by default")
	}
}

func TestAIInsightsMatchedKeywords(t *testing.T) {
	page := render(t, newTestRegistry(t), AIInsights, map[string]string{"show_keywords": "true"})
	table := panelByTitle(t, page, "Matched AI Keywords")
	require.NotNil(t, table.Table)
	assert.Equal(t, [][]string{{"1", "machine learning"}, {"5", "deep learning"}}, table.Table.Rows)
}

func TestAIInsightsFilters(t *testing.T) {
	page := render(t, newTestRegistry(t), AIInsights, map[string]string{"year": "2021,2022"})
	assert.Equal(t, "1", page.Metrics[0].Value)
}

func TestAIInsightsNoMatches(t *testing.T) {
	page := render(t, newTestRegistry(t, WithAITerms([]string{"astrophysics"})), AIInsights, nil)
	assert.Empty(t, page.Metrics)
	require.Len(t, page.Panels, 1)
	assert.True(t, page.Panels[0].Empty)
	assert.Equal(t, NoAIGrantsMessage, page.Panels[0].EmptyMessage)
}
