// Package render turns computed panels into downloadable artifacts: PNG
// images drawn with go-chart and CSV exports of the underlying data.
package render

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/pages"
)

var (
	// ErrUnsupportedKind is returned for a panel kind with no PNG form.
	ErrUnsupportedKind = errors.New("panel kind cannot be rendered")
	// ErrEmptyPanel is returned for a panel with nothing to draw.
	ErrEmptyPanel = errors.New("panel is empty")
)

// Default image size in pixels.
const (
	DefaultWidth  = 1024
	DefaultHeight = 512
)

// Options sizes a rendered image.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// ============================================================================
// PNG
// ============================================================================

// PNG draws p to w. Image panels copy their asset file unchanged.
func PNG(p pages.Panel, w io.Writer, opts Options) error {
	if p.Empty {
		return fmt.Errorf("%s: %w", p.Title, ErrEmptyPanel)
	}
	if p.Kind == engine.KindImage {
		return copyAsset(p, w)
	}
	if p.Chart == nil || len(p.Chart.Series) == 0 {
		return fmt.Errorf("%s: %w: %s", p.Title, ErrUnsupportedKind, p.Kind)
	}

	width, height := opts.size()
	var err error
	switch p.Kind {
	case engine.KindBar:
		err = barChart(p.Chart, width, height).Render(chart.PNG, w)
	case engine.KindLine:
		err = lineChart(p.Chart, width, height).Render(chart.PNG, w)
	case engine.KindPie:
		var pie chart.PieChart
		if pie, err = pieChart(p.Chart, width, height); err == nil {
			err = pie.Render(chart.PNG, w)
		}
	case engine.KindStackedBar:
		err = stackedChart(p.Chart, width, height).Render(chart.PNG, w)
	default:
		return fmt.Errorf("%s: %w: %s", p.Title, ErrUnsupportedKind, p.Kind)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", p.Title, err)
	}
	return nil
}

func copyAsset(p pages.Panel, w io.Writer) error {
	if p.Asset == "" {
		return fmt.Errorf("%s: %w", p.Title, ErrEmptyPanel)
	}
	f, err := os.Open(p.Asset)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Asset, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", p.Asset, err)
	}
	return nil
}

func barChart(c *engine.ChartConfig, width, height int) chart.BarChart {
	series := c.Series[0]
	bars := make([]chart.Value, len(series.Data))
	var max float64
	for i, pt := range series.Data {
		bars[i] = chart.Value{Label: pt.Label, Value: pt.Value, Style: fill(colorAt(c, i))}
		max = math.Max(max, pt.Value)
	}
	if n := len(bars) * 48; n > width {
		width = n
	}
	return chart.BarChart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth(width, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:           c.YAxis,
			Range:          &chart.ContinuousRange{Min: 0, Max: headroom(max)},
			ValueFormatter: amountFormatter,
		},
		Bars: bars,
	}
}

// lineChart plots every series against the label positions 0..n-1. A single
// point is padded to two so the x range is never degenerate.
func lineChart(c *engine.ChartConfig, width, height int) chart.Chart {
	labels := c.Series[0].Data
	ticks := make([]chart.Tick, len(labels))
	for i, pt := range labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: pt.Label}
	}

	var max float64
	series := make([]chart.Series, 0, len(c.Series))
	for i, s := range c.Series {
		xs := make([]float64, len(s.Data))
		ys := make([]float64, len(s.Data))
		for j, pt := range s.Data {
			xs[j], ys[j] = float64(j), pt.Value
			max = math.Max(max, pt.Value)
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		col := colorAt(c, i)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 4},
		})
	}

	hi := float64(len(labels) - 1)
	if hi < 1 {
		hi = 1
	}
	ch := chart.Chart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: c.XAxis, Ticks: ticks, Range: &chart.ContinuousRange{Min: 0, Max: hi}},
		YAxis: chart.YAxis{
			Name:           c.YAxis,
			Range:          &chart.ContinuousRange{Min: 0, Max: headroom(max)},
			ValueFormatter: amountFormatter,
		},
		Series: series,
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch
}

// pieChart needs at least one positive slice; zero slices are dropped.
func pieChart(c *engine.ChartConfig, width, height int) (chart.PieChart, error) {
	var values []chart.Value
	for i, pt := range c.Series[0].Data {
		if pt.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: pt.Label, Value: pt.Value, Style: fill(colorAt(c, i))})
	}
	if len(values) == 0 {
		return chart.PieChart{}, fmt.Errorf("%s: %w", c.Title, ErrEmptyPanel)
	}
	return chart.PieChart{Title: c.Title, Width: width, Height: height, Values: values}, nil
}

// stackedChart draws one bar per label with one segment per series. Labels
// whose segments are all zero are omitted.
func stackedChart(c *engine.ChartConfig, width, height int) chart.StackedBarChart {
	labels := c.Series[0].Data
	bars := make([]chart.StackedBar, 0, len(labels))
	for j, pt := range labels {
		bar := chart.StackedBar{Name: pt.Label}
		var total float64
		for i, s := range c.Series {
			if j >= len(s.Data) {
				continue
			}
			v := s.Data[j].Value
			total += v
			bar.Values = append(bar.Values, chart.Value{Label: s.Name, Value: v, Style: fill(colorAt(c, i))})
		}
		if total > 0 {
			bars = append(bars, bar)
		}
	}
	return chart.StackedBarChart{
		Title:      c.Title,
		Width:      width,
		Height:     height,
		BarSpacing: 16,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Bars:       bars,
	}
}

func colorAt(c *engine.ChartConfig, i int) drawing.Color {
	if len(c.Colors) == 0 {
		return chart.GetDefaultColor(i)
	}
	hex := c.Colors[i%len(c.Colors)]
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func fill(col drawing.Color) chart.Style {
	return chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1}
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	w := width / (2 * n)
	switch {
	case w < 8:
		return 8
	case w > 80:
		return 80
	}
	return w
}

// headroom pads the axis maximum by a tenth and keeps it positive.
func headroom(max float64) float64 {
	if max <= 0 {
		return 1
	}
	return max * 1.1
}

func amountFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return engine.FormatAmount(f)
	}
	return ""
}

// ============================================================================
// CSV
// ============================================================================

// CSV writes the data behind p: table rows, word weights, or one row per
// chart label. A single series gets label/value columns; several series get
// one column each.
func CSV(p pages.Panel, w io.Writer) error {
	if p.Empty {
		return fmt.Errorf("%s: %w", p.Title, ErrEmptyPanel)
	}
	cw := csv.NewWriter(w)

	switch {
	case p.Table != nil:
		header := make([]string, len(p.Table.Columns))
		for i, col := range p.Table.Columns {
			header[i] = col.Label
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(p.Table.Rows); err != nil {
			return err
		}

	case len(p.Words) > 0:
		if err := cw.Write([]string{"Word", "Weight"}); err != nil {
			return err
		}
		for _, ww := range p.Words {
			if err := cw.Write([]string{ww.Word, formatValue(ww.Weight)}); err != nil {
				return err
			}
		}

	case p.Chart != nil && len(p.Chart.Series) > 0:
		xLabel, yLabel := p.Chart.XAxis, p.Chart.YAxis
		if xLabel == "" {
			xLabel = "Label"
		}
		if yLabel == "" {
			yLabel = "Value"
		}
		header := []string{xLabel}
		if len(p.Chart.Series) == 1 {
			header = append(header, yLabel)
		} else {
			for _, s := range p.Chart.Series {
				header = append(header, s.Name)
			}
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		for j, pt := range p.Chart.Series[0].Data {
			row := []string{pt.Label}
			for _, s := range p.Chart.Series {
				cell := ""
				if j < len(s.Data) {
					cell = formatValue(s.Data[j].Value)
				}
				row = append(row, cell)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%s: %w: %s", p.Title, ErrUnsupportedKind, p.Kind)
	}

	cw.Flush()
	return cw.Error()
}

// formatValue prints whole numbers without decimals and anything else with
// two.
func formatValue(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
