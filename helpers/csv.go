package helpers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/schema"
)

// ============================================================================
// CSV HELPER — Parses tabular data into an engine.SliceView
// ============================================================================
// The caller opens the source (file, S3 object, SQL rows) and hands over a
// reader or raw cells. Declared columns follow the schema.Table; undeclared
// columns are classified with schema.Table.Extend. An empty cell is a
// missing value. A measure cell that does not parse is a missing value and
// the row is kept.
// ============================================================================

// ErrEmptyInput is returned when a CSV stream has no header row.
var ErrEmptyInput = errors.New("csv has no header row")

// ParseCSV reads a CSV stream with a header row into a view.
func ParseCSV(r io.Reader, table schema.Table) (*engine.SliceView, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", table.Name, ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read CSV headers: %w", table.Name, err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: malformed CSV: %w", table.Name, err)
		}
		rows = append(rows, row)
	}

	return ParseRows(table, headers, rows)
}

// ParseRows converts raw cells in header order into a view. Rows shorter
// than the header read as missing values in the trailing columns.
func ParseRows(table schema.Table, headers []string, rows [][]string) (*engine.SliceView, error) {
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	if err := table.Require(headers); err != nil {
		return nil, err
	}

	full := table.Extend(headers, rows)

	type colMapping struct {
		key         string
		isDimension bool
		isMeasure   bool
	}
	mappings := make([]colMapping, len(headers))
	for i, h := range headers {
		switch {
		case full.IsDimension(h):
			mappings[i] = colMapping{key: h, isDimension: true}
		case full.IsMeasure(h):
			mappings[i] = colMapping{key: h, isMeasure: true}
		}
	}

	records := make([]engine.Record, 0, len(rows))
	for _, row := range rows {
		rec := engine.Record{
			Dimensions: make(map[string]string),
			Measures:   make(map[string]float64),
		}
		for i, val := range row {
			if i >= len(mappings) {
				break
			}
			m := mappings[i]
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			if m.isDimension {
				rec.Dimensions[m.key] = val
			} else if m.isMeasure {
				if f, ok := parseNumber(val); ok {
					rec.Measures[m.key] = f
				}
			}
		}
		records = append(records, rec)
	}

	return engine.NewTableView(records, full.DimensionKeys(), full.MeasureKeys()), nil
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
