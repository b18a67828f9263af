package engine

import (
	"fmt"
	"math"
	"strings"
)

// ============================================================================
// TEXT BUILDER — Metric cards and number formatting
// ============================================================================

// Metric is a single headline number (e.g. "Total Grants").
type Metric struct {
	Title    string  `json:"title"`
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Unit     string  `json:"unit,omitempty"`
}

// BuildMetric reduces a whole view with op into a Metric. Count-like ops are
// formatted as integers, sums as an amount in unit.
func BuildMetric(title string, view RecordView, field string, op Op, unit string) Metric {
	var value float64
	switch op {
	case OpCount:
		value = float64(view.Len())
	case OpDistinct:
		value = float64(CountDistinct(view, field))
	default:
		value = SumMeasure(view, field)
	}

	m := Metric{Title: title, RawValue: value, Unit: unit}
	if op == OpCount || op == OpDistinct {
		m.Value = FormatInt(int(value))
	} else {
		m.Value = FormatAmount(value)
	}
	return m
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatAmount formats a whole-unit amount with comma separators and no
// decimals ("1,234,567").
func FormatAmount(amount float64) string {
	rounded := math.Round(amount)
	if rounded < 0 {
		return "-" + FormatInt(int(-rounded))
	}
	return FormatInt(int(rounded))
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForField returns a capitalized label for a field key.
func LabelForField(field string) string {
	if len(field) == 0 {
		return ""
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// LabelForOp returns a human-readable label for an aggregation.
func LabelForOp(op Op) string {
	switch op {
	case OpSum:
		return "Amount"
	case OpCount:
		return "Count"
	case OpDistinct:
		return "Distinct"
	default:
		return "Value"
	}
}
