package csvfile

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"hoteldash/internal/core"
	"hoteldash/internal/sources"
)

// Source loads a delimited text file with a header row.
type Source struct {
	path   string
	schema core.Schema
	opts   core.CSVOptions
}

var _ sources.Loader = (*Source)(nil)

// New returns a loader for the file at path. Columns declared in schema keep
// their declared types.
func New(path string, schema core.Schema, opts core.CSVOptions) *Source {
	return &Source{path: path, schema: schema, opts: opts}
}

// Name implements sources.Loader
func (s *Source) Name() string {
	return "csv:" + s.path
}

// Load implements sources.Loader
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	ds, err := core.FromCSV(bufio.NewReader(f), s.schema, s.opts)
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}

	rows, cols := ds.Shape()
	slog.InfoContext(ctx, "Dataset loaded from CSV",
		"path", s.path,
		"rows", rows,
		"columns", cols,
		"numeric_columns", len(ds.NumericColumns()))
	return ds, nil
}
