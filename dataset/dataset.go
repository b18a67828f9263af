// Package dataset loads the grant tables once and hands out an immutable,
// read-only handle to them.
package dataset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/schema"
)

// ============================================================================
// DATASET — Load-once table handle
// ============================================================================
// Load reads every table of the schema set concurrently and fails on the
// first error, naming the table's location. The resulting Dataset is never
// mutated: pages filter, join and aggregate through zero-copy views over it,
// so any number of requests may read it at once.
// ============================================================================

// Dataset is the loaded set of tables.
type Dataset struct {
	tables   map[string]*engine.SliceView
	source   Source
	loadedAt time.Time
}

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// WithLogger sets the logger used for load progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConcurrency caps the number of tables read at once. n <= 0 means no
// limit.
func WithConcurrency(n int) Option {
	return func(c *loadConfig) { c.concurrency = n }
}

// Load reads every table in sch from src.
func Load(ctx context.Context, src Source, sch schema.Set, opts ...Option) (*Dataset, error) {
	cfg := loadConfig{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := cfg.now()
	views := make([]*engine.SliceView, len(sch))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.concurrency > 0 {
		g.SetLimit(cfg.concurrency)
	}
	for i, table := range sch {
		g.Go(func() error {
			view, err := src.Read(gctx, table)
			if err != nil {
				return fmt.Errorf("load %s: %w", table.Name, err)
			}
			views[i] = view
			cfg.logger.Debug("table loaded",
				zap.String("table", table.Name),
				zap.Int("rows", view.Len()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{
		tables:   make(map[string]*engine.SliceView, len(sch)),
		source:   src,
		loadedAt: cfg.now(),
	}
	for i, table := range sch {
		ds.tables[table.Name] = views[i]
	}

	cfg.logger.Info("dataset loaded",
		zap.String("source", src.Describe()),
		zap.Int("tables", len(sch)),
		zap.Duration("elapsed", ds.loadedAt.Sub(start)))
	return ds, nil
}

// Table returns the named table.
func (d *Dataset) Table(name string) (engine.RecordView, bool) {
	v, ok := d.tables[name]
	if !ok {
		return nil, false
	}
	return v, true
}

func (d *Dataset) mustTable(name string) engine.RecordView {
	if v, ok := d.tables[name]; ok {
		return v
	}
	return engine.NewSliceView(nil)
}

func (d *Dataset) Grants() engine.RecordView           { return d.mustTable(schema.Grant) }
func (d *Dataset) Persons() engine.RecordView          { return d.mustTable(schema.Person) }
func (d *Dataset) Institutes() engine.RecordView       { return d.mustTable(schema.Institute) }
func (d *Dataset) Disciplines() engine.RecordView      { return d.mustTable(schema.Discipline) }
func (d *Dataset) Keywords() engine.RecordView         { return d.mustTable(schema.Keyword) }
func (d *Dataset) GrantPersons() engine.RecordView     { return d.mustTable(schema.GrantToPerson) }
func (d *Dataset) GrantDisciplines() engine.RecordView { return d.mustTable(schema.GrantToDiscipline) }
func (d *Dataset) GrantKeywords() engine.RecordView    { return d.mustTable(schema.GrantToKeyword) }

// LoadedAt is when the last table finished loading.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Source describes where the data came from.
func (d *Dataset) Source() string { return d.source.Describe() }

// Stats returns the row count of every table.
func (d *Dataset) Stats() map[string]int {
	out := make(map[string]int, len(d.tables))
	for name, v := range d.tables {
		out[name] = v.Len()
	}
	return out
}

// Close releases the source.
func (d *Dataset) Close() error {
	if d.source == nil {
		return nil
	}
	return d.source.Close()
}
