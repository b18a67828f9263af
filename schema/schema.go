package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the eight tables of a grant dataset
// ============================================================================
// Each Table names its source file, the columns read as text (dimensions)
// and the columns read as numbers (measures). Keys are the join columns a
// table cannot be loaded without. Columns a source carries that a Table does
// not declare are classified on load (see Classify).
// ============================================================================

// Table names.
const (
	Grant             = "Grant"
	Person            = "Person"
	Institute         = "Institute"
	GrantToPerson     = "GrantToPerson"
	GrantToDiscipline = "GrantToDiscipline"
	Discipline        = "Discipline"
	GrantToKeyword    = "GrantToKeyword"
	Keyword           = "Keyword"
)

// ErrMissingColumn is returned when a table source lacks a key column.
var ErrMissingColumn = errors.New("missing key column")

// Table describes one tabular source.
type Table struct {
	Name       string          `json:"name" yaml:"name"`
	File       string          `json:"file" yaml:"file"`
	Keys       []string        `json:"keys" yaml:"keys"`
	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`
}

// DimensionMeta describes a text column used for grouping, filtering and
// joining.
type DimensionMeta struct {
	Key         string `json:"key" yaml:"key"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// MeasureMeta describes a numeric column used for aggregation.
type MeasureMeta struct {
	Key         string `json:"key" yaml:"key"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Set is the complete collection of tables a dataset loads.
type Set []Table

// Default returns the SNSF grant export: eight CSV files named after their
// tables.
func Default() Set {
	return Set{
		{
			Name: Grant,
			File: "Grant.csv",
			Keys: []string{"GrantNumber"},
			Dimensions: []DimensionMeta{
				{Key: "GrantNumber", DisplayName: "Grant"},
				{Key: "MainDiscipline", DisplayName: "Main Discipline"},
				{Key: "Institute", DisplayName: "Institution"},
			},
			Measures: []MeasureMeta{
				{Key: "CallDecisionYear", DisplayName: "Year"},
				{Key: "AmountGrantedAllSets", DisplayName: "Amount Granted", Unit: "CHF"},
			},
		},
		{
			Name: Person,
			File: "Person.csv",
			Keys: []string{"PersonNumber"},
			Dimensions: []DimensionMeta{
				{Key: "PersonNumber", DisplayName: "Person"},
				{Key: "FirstName", DisplayName: "First Name"},
				{Key: "Surname", DisplayName: "Surname"},
				{Key: "Gender", DisplayName: "Gender"},
			},
		},
		{
			Name: Institute,
			File: "Institute.csv",
			Keys: []string{"InstituteNumber"},
			Dimensions: []DimensionMeta{
				{Key: "InstituteNumber", DisplayName: "Institute Number"},
				{Key: "Institute", DisplayName: "Institution"},
			},
		},
		{
			Name: GrantToPerson,
			File: "GrantToPerson.csv",
			Keys: []string{"GrantNumber", "PersonNumber"},
			Dimensions: []DimensionMeta{
				{Key: "GrantNumber", DisplayName: "Grant"},
				{Key: "PersonNumber", DisplayName: "Person"},
			},
		},
		{
			Name: GrantToDiscipline,
			File: "GrantToDiscipline.csv",
			Keys: []string{"GrantNumber", "DisciplineId"},
			Dimensions: []DimensionMeta{
				{Key: "GrantNumber", DisplayName: "Grant"},
				{Key: "DisciplineId", DisplayName: "Discipline"},
			},
		},
		{
			Name: Discipline,
			File: "Discipline.csv",
			Keys: []string{"Id"},
			Dimensions: []DimensionMeta{
				{Key: "Id", DisplayName: "Id"},
				{Key: "Discipline", DisplayName: "Discipline"},
			},
		},
		{
			Name: GrantToKeyword,
			File: "GrantToKeyword.csv",
			Keys: []string{"GrantNumber", "KeywordId"},
			Dimensions: []DimensionMeta{
				{Key: "GrantNumber", DisplayName: "Grant"},
				{Key: "KeywordId", DisplayName: "Keyword"},
			},
		},
		{
			Name: Keyword,
			File: "Keyword.csv",
			Keys: []string{"Id"},
			Dimensions: []DimensionMeta{
				{Key: "Id", DisplayName: "Id"},
				{Key: "Word", DisplayName: "Keyword"},
			},
		},
	}
}

// Lookup returns the table called name.
func (s Set) Lookup(name string) (Table, bool) {
	for _, t := range s {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Names lists table names in declaration order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Name
	}
	return names
}

// Require fails when any of the table's key columns is absent from headers.
func (t Table) Require(headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, k := range t.Keys {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", t.Name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// IsDimension reports whether key is a declared text column.
func (t Table) IsDimension(key string) bool {
	for _, d := range t.Dimensions {
		if d.Key == key {
			return true
		}
	}
	return false
}

// IsMeasure reports whether key is a declared numeric column.
func (t Table) IsMeasure(key string) bool {
	for _, m := range t.Measures {
		if m.Key == key {
			return true
		}
	}
	return false
}

// DimensionKeys returns all dimension keys.
func (t Table) DimensionKeys() []string {
	keys := make([]string, len(t.Dimensions))
	for i, d := range t.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (t Table) MeasureKeys() []string {
	keys := make([]string, len(t.Measures))
	for i, m := range t.Measures {
		keys[i] = m.Key
	}
	return keys
}

// DisplayName returns the label for key, or key itself when undeclared.
func (t Table) DisplayName(key string) string {
	for _, d := range t.Dimensions {
		if d.Key == key && d.DisplayName != "" {
			return d.DisplayName
		}
	}
	for _, m := range t.Measures {
		if m.Key == key && m.DisplayName != "" {
			return m.DisplayName
		}
	}
	return key
}
