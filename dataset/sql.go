package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/helpers"
	"github.com/spektr-org/grantlens/schema"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQLSource reads each table from a SQL table of the same name. Every
// column is selected; values are converted to text and classified exactly
// like CSV cells.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewSQLSource opens and pings a database.
func NewSQLSource(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &SQLSource{db: db, driver: driver}, nil
}

// NewSQLSourceFromDB wraps an already opened database.
func NewSQLSourceFromDB(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

func (s *SQLSource) Read(ctx context.Context, table schema.Table) (*engine.SliceView, error) {
	query := "SELECT * FROM " + quoteIdent(table.Name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("%w: %s table %s", ErrMissingTable, s.driver, table.Name)
		}
		return nil, fmt.Errorf("query %s: %w", table.Name, err)
	}
	defer func() { _ = rows.Close() }()

	headers, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table.Name, err)
	}

	var cells [][]string
	raw := make([]any, len(headers))
	ptrs := make([]any, len(headers))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table.Name, err)
		}
		row := make([]string, len(headers))
		for i, v := range raw {
			row[i] = cellText(v)
		}
		cells = append(cells, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", table.Name, err)
	}

	view, err := helpers.ParseRows(table, headers, cells)
	if err != nil {
		return nil, fmt.Errorf("%s table %s: %w", s.driver, table.Name, err)
	}
	return view, nil
}

func (s *SQLSource) Describe() string { return "sql:" + s.driver }

func (s *SQLSource) Close() error { return s.db.Close() }

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}
