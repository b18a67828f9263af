package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/helpers"
	"github.com/spektr-org/grantlens/schema"
)

// ErrMissingTable is returned when a source has no data for a table.
var ErrMissingTable = errors.New("missing table")

// Source reads one table at a time. Read must be safe for concurrent use
// with distinct tables.
type Source interface {
	Read(ctx context.Context, table schema.Table) (*engine.SliceView, error)
	// Describe names the source in logs and errors.
	Describe() string
	Close() error
}

// ============================================================================
// DIRECTORY SOURCE
// ============================================================================

// DirSource reads each table from <Dir>/<table.File>.
type DirSource struct {
	Dir string
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Read(ctx context.Context, table schema.Table) (*engine.SliceView, error) {
	path := filepath.Join(s.Dir, table.File)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, err := helpers.ParseCSV(f, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return view, nil
}

func (s *DirSource) Describe() string { return "dir:" + s.Dir }

func (s *DirSource) Close() error { return nil }

// ============================================================================
// MEMORY SOURCE
// ============================================================================

// MemSource serves tables from in-memory CSV text keyed by table name.
// Used for fixtures and embedded demo data.
type MemSource map[string]string

func (s MemSource) Read(_ context.Context, table schema.Table) (*engine.SliceView, error) {
	text, ok := s[table.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, table.File)
	}
	view, err := helpers.ParseCSV(strings.NewReader(text), table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table.File, err)
	}
	return view, nil
}

func (s MemSource) Describe() string { return "memory" }

func (s MemSource) Close() error { return nil }
