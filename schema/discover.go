package schema

import (
	"strconv"
	"strings"
)

// ============================================================================
// DISCOVERY — Heuristic classification of undeclared columns
// ============================================================================
// A source may carry more columns than its Table declares (the SNSF export
// has dozens per file). Rather than dropping them, Extend inspects their
// values and adds each one as a dimension or a measure.
//
// Classification per column:
//   1. Empty everywhere → skipped
//   2. Name ends in Id/Number/Code → dimension (identifier, joined as text)
//   3. Numeric (≥80% of non-empty values parse) → measure, unless every
//      value is a distinct integer (an unnamed identifier) → dimension
//   4. Anything else → dimension
// ============================================================================

// Role is how a column is read.
type Role int

const (
	RoleDimension Role = iota
	RoleMeasure
	RoleSkipped
)

func (r Role) String() string {
	switch r {
	case RoleMeasure:
		return "measure"
	case RoleSkipped:
		return "skipped"
	default:
		return "dimension"
	}
}

var identifierSuffixes = []string{"Id", "ID", "Number", "Code"}

// Classify decides the role of a column from its header and values.
func Classify(header string, values []string) Role {
	nonEmpty := make([]string, 0, len(values))
	unique := make(map[string]bool)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if isNull(v) {
			continue
		}
		nonEmpty = append(nonEmpty, v)
		unique[v] = true
	}
	if len(nonEmpty) == 0 {
		return RoleSkipped
	}

	for _, suffix := range identifierSuffixes {
		if strings.HasSuffix(header, suffix) {
			return RoleDimension
		}
	}

	numCount, intCount := 0, 0
	for _, v := range nonEmpty {
		if isNumeric(v) {
			numCount++
			if !strings.Contains(v, ".") {
				intCount++
			}
		}
	}
	threshold := int(float64(len(nonEmpty)) * 0.8)
	if numCount < threshold || numCount == 0 {
		return RoleDimension
	}
	if intCount == len(nonEmpty) && len(unique) == len(nonEmpty) && len(nonEmpty) > 10 {
		return RoleDimension
	}
	return RoleMeasure
}

// Extend returns a copy of t with every undeclared header classified and
// appended. rows holds the raw cells in header order; skipped columns are
// left out.
func (t Table) Extend(headers []string, rows [][]string) Table {
	out := t
	out.Dimensions = append([]DimensionMeta(nil), t.Dimensions...)
	out.Measures = append([]MeasureMeta(nil), t.Measures...)

	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" || t.IsDimension(h) || t.IsMeasure(h) {
			continue
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		switch Classify(h, values) {
		case RoleDimension:
			out.Dimensions = append(out.Dimensions, DimensionMeta{Key: h, DisplayName: toDisplayName(h)})
		case RoleMeasure:
			out.Measures = append(out.Measures, MeasureMeta{Key: h, DisplayName: toDisplayName(h)})
		}
	}
	return out
}

func isNull(s string) bool {
	return s == "" || s == "null" || s == "NULL" || s == "N/A" || s == "n/a" || s == "NaN"
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "-")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// toDisplayName splits a CamelCase header into words.
// "AmountGrantedAllSets" → "Amount Granted All Sets"
func toDisplayName(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				b.WriteRune(' ')
			}
		}
		if r == '_' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
