package pages

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/grantlens/engine"
)

// ============================================================================
// WIDGETS — Input specifications handed to the presentation layer
// ============================================================================
// A page declares its widgets; the presentation layer draws them however it
// likes and sends back one raw string per widget key. Decode turns those
// strings into typed Values, filling in defaults for anything not sent.
//
// Wire formats:
//   slider (range)  "lo,hi"       e.g. "2018,2021"
//   slider (single) "n"
//   select          option text
//   text            free text
//   checkbox        "true" / "false" (strconv.ParseBool)
// ============================================================================

// ErrInvalidSelection is returned when a raw value does not fit its widget.
var ErrInvalidSelection = errors.New("invalid selection")

// WidgetKind names a widget type.
type WidgetKind string

const (
	KindSlider   WidgetKind = "slider"
	KindSelect   WidgetKind = "select"
	KindText     WidgetKind = "text"
	KindCheckbox WidgetKind = "checkbox"
)

// Widget is one input specification.
type Widget struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Kind  WidgetKind `json:"kind"`

	// slider
	Min          float64   `json:"min,omitempty"`
	Max          float64   `json:"max,omitempty"`
	Range        bool      `json:"range,omitempty"`
	DefaultRange []float64 `json:"defaultRange,omitempty"`

	// select
	Options []string `json:"options,omitempty"`

	// select, text, checkbox, single slider
	Default string `json:"default,omitempty"`
}

// RangeSlider selects an inclusive [lo, hi] within [min, max]; it defaults
// to the full span.
func RangeSlider(key, label string, min, max float64) Widget {
	if max < min {
		min, max = max, min
	}
	return Widget{Key: key, Label: label, Kind: KindSlider, Min: min, Max: max, Range: true, DefaultRange: []float64{min, max}}
}

// Slider selects a single value within [min, max].
func Slider(key, label string, min, max, def float64) Widget {
	return Widget{Key: key, Label: label, Kind: KindSlider, Min: min, Max: max, Default: formatNumber(def)}
}

// Select chooses one of options; def must be among them.
func Select(key, label string, options []string, def string) Widget {
	return Widget{Key: key, Label: label, Kind: KindSelect, Options: options, Default: def}
}

// AllOr returns the sentinel "All" followed by values sorted.
func AllOr(values []string) []string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return append([]string{engine.All}, sorted...)
}

// TextInput accepts free text.
func TextInput(key, label, def string) Widget {
	return Widget{Key: key, Label: label, Kind: KindText, Default: def}
}

// Checkbox is a boolean toggle.
func Checkbox(key, label string, def bool) Widget {
	return Widget{Key: key, Label: label, Kind: KindCheckbox, Default: strconv.FormatBool(def)}
}

// ============================================================================
// VALUES
// ============================================================================

// Values are decoded widget selections.
type Values struct {
	ranges  map[string][2]float64
	numbers map[string]float64
	texts   map[string]string
	flags   map[string]bool
}

func newValues() Values {
	return Values{
		ranges:  map[string][2]float64{},
		numbers: map[string]float64{},
		texts:   map[string]string{},
		flags:   map[string]bool{},
	}
}

// Range returns a range slider's selection.
func (v Values) Range(key string) (lo, hi float64) {
	r := v.ranges[key]
	return r[0], r[1]
}

// Number returns a single slider's selection.
func (v Values) Number(key string) float64 { return v.numbers[key] }

// Int returns a single slider's selection rounded to an int.
func (v Values) Int(key string) int { return int(math.Round(v.numbers[key])) }

// Text returns a select or text input's selection.
func (v Values) Text(key string) string { return v.texts[key] }

// Checked returns a checkbox's selection.
func (v Values) Checked(key string) bool { return v.flags[key] }

// Encode renders the values back into their raw wire form.
func (v Values) Encode() map[string]string {
	out := make(map[string]string)
	for k, r := range v.ranges {
		out[k] = formatNumber(r[0]) + "," + formatNumber(r[1])
	}
	for k, n := range v.numbers {
		out[k] = formatNumber(n)
	}
	for k, s := range v.texts {
		out[k] = s
	}
	for k, b := range v.flags {
		out[k] = strconv.FormatBool(b)
	}
	return out
}

// Decode reads raw selections against widgets. Keys without a widget are
// ignored; widgets without a raw value take their default. Slider values
// outside [min, max] are clamped.
func Decode(widgets []Widget, raw map[string]string) (Values, error) {
	vals := newValues()
	for _, w := range widgets {
		s, sent := raw[w.Key]
		s = strings.TrimSpace(s)
		switch w.Kind {
		case KindSlider:
			if w.Range {
				lo, hi := w.DefaultRange[0], w.DefaultRange[1]
				if sent && s != "" {
					var err error
					if lo, hi, err = parseRange(s); err != nil {
						return Values{}, fmt.Errorf("%s: %w", w.Key, err)
					}
				}
				vals.ranges[w.Key] = [2]float64{clamp(lo, w.Min, w.Max), clamp(hi, w.Min, w.Max)}
				continue
			}
			if !sent || s == "" {
				s = w.Default
			}
			n, err := parseNumber(s)
			if err != nil {
				return Values{}, fmt.Errorf("%s: %w", w.Key, err)
			}
			vals.numbers[w.Key] = clamp(n, w.Min, w.Max)

		case KindSelect:
			if !sent || s == "" {
				s = w.Default
			}
			if !contains(w.Options, s) {
				return Values{}, fmt.Errorf("%s: %w: %q is not an option", w.Key, ErrInvalidSelection, s)
			}
			vals.texts[w.Key] = s

		case KindText:
			if !sent {
				s = w.Default
			}
			vals.texts[w.Key] = s

		case KindCheckbox:
			if !sent || s == "" {
				s = w.Default
			}
			b, err := strconv.ParseBool(s)
			if err != nil {
				return Values{}, fmt.Errorf("%s: %w: %q is not a boolean", w.Key, ErrInvalidSelection, s)
			}
			vals.flags[w.Key] = b
		}
	}
	return vals, nil
}

func parseRange(s string) (lo, hi float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not lo,hi", ErrInvalidSelection, s)
	}
	if lo, err = parseNumber(parts[0]); err != nil {
		return 0, 0, err
	}
	if hi, err = parseNumber(parts[1]); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: %s > %s", engine.ErrInvalidRange, formatNumber(lo), formatNumber(hi))
	}
	return lo, hi, nil
}

// parseNumber accepts finite numbers only; NaN would pass through clamp.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, s)
	}
	return n, nil
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
