// Package pages computes the analysis pages of the grant explorer. Every
// page is a pure function of the loaded dataset and the user's widget
// selections; nothing here performs I/O or keeps state between calls.
package pages

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/grantlens/dataset"
	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/tagger"
)

// ErrUnknownPage is returned for a page name that is not registered.
var ErrUnknownPage = errors.New("unknown page")

// Page names.
const (
	Overview      = "overview"
	Trends        = "trends"
	Topics        = "topics"
	Diversity     = "diversity"
	Collaboration = "collaboration"
	AIInsights    = "ai"
)

// NetworkImageURL is where the presentation layer serves the static
// collaboration network image.
const NetworkImageURL = "/assets/network.png"

// fundingMeasure is aggregated by any query that names no measure.
const fundingMeasure = "AmountGrantedAllSets"

// Page is one computed page.
type Page struct {
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	Widgets    []Widget          `json:"widgets"`
	Selections map[string]string `json:"selections"`
	Metrics    []engine.Metric   `json:"metrics,omitempty"`
	Panels     []Panel           `json:"panels"`
}

// Panel is one chart, table or image on a page. Exactly one of Chart,
// Table, Words or Image is set unless Empty.
type Panel struct {
	Title        string              `json:"title"`
	Kind         engine.ChartKind    `json:"kind"`
	Chart        *engine.ChartConfig `json:"chart,omitempty"`
	Table        *engine.TableData   `json:"table,omitempty"`
	Words        []WordWeight        `json:"words,omitempty"`
	Image        string              `json:"image,omitempty"`
	Description  string              `json:"description,omitempty"`
	Empty        bool                `json:"empty"`
	EmptyMessage string              `json:"emptyMessage,omitempty"`

	// Asset is the local file behind Image.
	Asset string `json:"-"`
}

// WordWeight is one word-cloud entry.
type WordWeight struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// Summary lists a page without computing it.
type Summary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type definition struct {
	name    string
	title   string
	widgets func(r *Registry) []Widget
	build   func(r *Registry, vals Values) (*Page, error)
}

// Registry computes pages against one dataset.
type Registry struct {
	data         *dataset.Dataset
	tagger       *tagger.Tagger
	logger       *zap.Logger
	networkImage string
	aiTerms      []string
	topN         int
	defs         []definition
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAITerms replaces the AI keyword terms.
func WithAITerms(terms []string) Option {
	return func(r *Registry) {
		if len(terms) > 0 {
			r.aiTerms = terms
		}
	}
}

// WithNetworkImage sets the collaboration network image file.
func WithNetworkImage(path string) Option {
	return func(r *Registry) { r.networkImage = path }
}

// WithTopN sets the size of the "top researchers/institutions" rankings.
func WithTopN(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.topN = n
		}
	}
}

// New returns a Registry over ds with all six pages.
func New(ds *dataset.Dataset, opts ...Option) *Registry {
	r := &Registry{
		data:    ds,
		logger:  zap.NewNop(),
		aiTerms: tagger.DefaultAITerms,
		topN:    10,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tagger = tagger.New(r.aiTerms, tagger.WithLogger(r.logger))
	r.defs = []definition{
		{Overview, "Welcome to the SNSF Explorer", noWidgets, buildOverview},
		{Trends, "Explore Funding Trends", trendsWidgets, buildTrends},
		{Topics, "Research Topics", topicsWidgets, buildTopics},
		{Diversity, "Diversity Insights", diversityWidgets, buildDiversity},
		{Collaboration, "Collaboration Network", noWidgets, buildCollaboration},
		{AIInsights, "AI Research Insights", aiWidgets, buildAI},
	}
	return r
}

// List returns every page in navigation order.
func (r *Registry) List() []Summary {
	out := make([]Summary, len(r.defs))
	for i, d := range r.defs {
		out[i] = Summary{Name: d.name, Title: d.title}
	}
	return out
}

// NetworkImage is the configured collaboration network image file.
func (r *Registry) NetworkImage() string { return r.networkImage }

// Stats reports the row count of every loaded table.
func (r *Registry) Stats() map[string]int { return r.data.Stats() }

// LoadedAt is when the underlying dataset finished loading.
func (r *Registry) LoadedAt() time.Time { return r.data.LoadedAt() }

// Widgets returns the widget specifications of a page.
func (r *Registry) Widgets(name string) ([]Widget, error) {
	d, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return d.widgets(r), nil
}

// Render computes a page. raw holds one value per widget key; missing keys
// take the widget default.
func (r *Registry) Render(name string, raw map[string]string) (*Page, error) {
	d, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	widgets := d.widgets(r)
	vals, err := Decode(widgets, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	page, err := d.build(r, vals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	page.Name = d.name
	page.Title = d.title
	page.Widgets = widgets
	page.Selections = vals.Encode()

	r.logger.Debug("page rendered",
		zap.String("page", name),
		zap.Int("panels", len(page.Panels)),
		zap.Duration("elapsed", time.Since(start)))
	return page, nil
}

func (r *Registry) lookup(name string) (definition, error) {
	for _, d := range r.defs {
		if d.name == name {
			return d, nil
		}
	}
	return definition{}, fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

func noWidgets(*Registry) []Widget { return nil }

// ============================================================================
// PANEL HELPERS
// ============================================================================

// chartPanel runs q and wraps the result. An empty result becomes an empty
// panel carrying emptyMsg.
func (r *Registry) chartPanel(q engine.Query, view engine.RecordView, emptyMsg string) (Panel, error) {
	res, err := engine.Execute(q, view,
		engine.WithLogger(r.logger),
		engine.WithDefaultMeasure(fundingMeasure),
	)
	if err != nil {
		return Panel{}, err
	}
	p := Panel{Title: q.Title, Kind: q.Chart, Chart: res.Chart}
	if res.Empty {
		p.Empty = true
		p.EmptyMessage = emptyMsg
	}
	return p, nil
}

func groupsPanel(title string, kind engine.ChartKind, xAxis, yAxis string, groups []engine.Group, emptyMsg string) Panel {
	p := Panel{Title: title, Kind: kind}
	if len(groups) == 0 {
		p.Empty = true
		p.EmptyMessage = emptyMsg
		return p
	}
	p.Chart = engine.BuildChart(engine.ChartSpec{Kind: kind, Title: title, XAxis: xAxis, YAxis: yAxis}, groups)
	return p
}

// bounds returns the whole-number span of a numeric field, or 0,0 when the
// field has no values.
func bounds(view engine.RecordView, field string) (float64, float64) {
	lo, hi, ok := engine.NumericBounds(view, field)
	if !ok {
		return 0, 0
	}
	return math.Floor(lo), math.Ceil(hi)
}

// researcherFunding joins grant-person links to grants and persons and adds
// a FullName column ("First Surname").
func researcherFunding(links, grants, persons engine.RecordView) engine.RecordView {
	withGrant := engine.JoinOn(links, engine.Project(grants, []string{"GrantNumber"}, []string{fundingMeasure}), "GrantNumber")
	withPerson := engine.JoinOn(withGrant, engine.Project(persons, []string{"PersonNumber", "FirstName", "Surname"}, nil), "PersonNumber")
	return engine.Derive(withPerson, "FullName", engine.Concat(" ", "FirstName", "Surname"))
}
