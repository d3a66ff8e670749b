package memory

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"hoteldash/internal/core"
	"hoteldash/internal/sources"
)

//go:embed sample.csv
var sampleCSV []byte

// Source serves a dataset held in memory. It backs local development and
// tests when no file or database is configured.
type Source struct {
	name    string
	records [][]string
	raw     []byte
	schema  core.Schema
}

var _ sources.Loader = (*Source)(nil)

// NewSample returns a source over the bundled bookings sample.
func NewSample(schema core.Schema) *Source {
	return &Source{name: "memory:sample", raw: sampleCSV, schema: schema}
}

// New returns a source over records whose first row is the header.
func New(records [][]string, schema core.Schema) *Source {
	cp := make([][]string, len(records))
	for i, r := range records {
		cp[i] = append([]string(nil), r...)
	}
	return &Source{name: "memory:records", records: cp, schema: schema}
}

// Name implements sources.Loader
func (s *Source) Name() string {
	return s.name
}

// Load implements sources.Loader
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewDataLoadError(s.name, err)
	}
	var (
		ds  *core.Dataset
		err error
	)
	if s.raw != nil {
		ds, err = core.FromCSV(bytes.NewReader(s.raw), s.schema, core.CSVOptions{})
	} else {
		ds, err = core.FromRecords(s.records, s.schema)
	}
	if err != nil {
		return nil, core.NewDataLoadError(s.name, fmt.Errorf("parse in-memory data: %w", err))
	}
	return ds, nil
}
