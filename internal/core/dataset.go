package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DefaultNaNValues are the cell markers read as missing values.
var DefaultNaNValues = []string{"", "NA", "NaN", "N/A", "NULL", "null", "<nil>"}

// Dataset is the immutable, load-once table every view reads from. It is
// built by a single owner at startup and shared by reference; nothing
// mutates it after NewDataset returns, so concurrent readers need no locks.
type Dataset struct {
	df      dataframe.DataFrame
	schema  Schema
	numeric []string
	index   map[string]int
}

// CSVOptions tunes delimited-text parsing.
type CSVOptions struct {
	Delimiter rune
	NaNValues []string
}

// FromCSV parses delimited text with a header row. Declared columns keep
// their declared type; any other column is type-detected once here.
func FromCSV(r io.Reader, declared Schema, opts CSVOptions) (*Dataset, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return loadRecords(records, declared, opts.NaNValues)
}

// FromRecords builds a dataset from string records whose first row is the
// header, the shape returned by SQL and spreadsheet sources.
func FromRecords(records [][]string, declared Schema) (*Dataset, error) {
	return loadRecords(records, declared, nil)
}

func loadRecords(records [][]string, declared Schema, nanValues []string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}
	if len(nanValues) == 0 {
		nanValues = DefaultNaNValues
	}
	if err := checkNumericCells(records, declared, nanValues); err != nil {
		return nil, err
	}
	if len(records) == 1 {
		return NewDataset(emptyFrame(records[0], declared))
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
		dataframe.WithTypes(declared.seriesTypes()),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse table: %w", df.Err)
	}
	return NewDataset(settleInts(df, declared))
}

// checkNumericCells rejects text in declared numeric columns, which gota
// would otherwise load as NaN.
func checkNumericCells(records [][]string, declared Schema, nanValues []string) error {
	missing := make(map[string]struct{}, len(nanValues))
	for _, v := range nanValues {
		missing[v] = struct{}{}
	}
	for col, name := range records[0] {
		f, ok := declared.Lookup(name)
		if !ok || !f.Type.IsNumeric() {
			continue
		}
		for row, rec := range records[1:] {
			if col >= len(rec) {
				continue
			}
			cell := rec[col]
			if _, ok := missing[cell]; ok {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				return fmt.Errorf("column %q row %d: %q is not a number", name, row+1, cell)
			}
		}
	}
	return nil
}

// emptyFrame builds a zero-row frame from a header. gota refuses to load
// records without data rows.
func emptyFrame(header []string, declared Schema) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		t := series.String
		if f, ok := declared.Lookup(name); ok {
			t = toSeriesType(f.Type)
		}
		cols[i] = series.New([]string{}, t, name)
	}
	return dataframe.New(cols...)
}

// settleInts restores declared int columns, which load as float so that
// cells such as "2.0" parse. A column stays float when it holds a missing
// or fractional value, as pandas does.
func settleInts(df dataframe.DataFrame, declared Schema) dataframe.DataFrame {
	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, f := range declared.Fields {
		if f.Type != FieldInt || !present[f.Name] {
			continue
		}
		vals := df.Col(f.Name).Float()
		ints := make([]int, len(vals))
		whole := true
		for i, v := range vals {
			if math.IsNaN(v) || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
				whole = false
				break
			}
			ints[i] = int(v)
		}
		if whole {
			df = df.Mutate(series.New(ints, series.Int, f.Name))
		}
	}
	return df
}

// NewDataset wraps a parsed frame, resolving its schema and numeric column
// set exactly once.
func NewDataset(df dataframe.DataFrame) (*Dataset, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("parse table: %w", df.Err)
	}
	names := df.Names()
	types := df.Types()
	schema := Schema{Fields: make([]Field, len(names))}
	for i, name := range names {
		schema.Fields[i] = Field{Name: name, Type: fromSeriesType(types[i])}
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	ds := &Dataset{
		df:     df,
		schema: schema,
		index:  make(map[string]int, len(names)),
	}
	for i, f := range schema.Fields {
		ds.index[f.Name] = i
		if f.Type.IsNumeric() {
			ds.numeric = append(ds.numeric, f.Name)
		}
	}
	return ds, nil
}

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) {
	return d.df.Nrow(), d.df.Ncol()
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return d.df.Nrow()
}

// Schema returns a copy of the resolved schema.
func (d *Dataset) Schema() Schema {
	return Schema{Fields: append([]Field(nil), d.schema.Fields...)}
}

// Names returns the column names in declaration order.
func (d *Dataset) Names() []string {
	return d.schema.Names()
}

// NumericColumns returns the int and float columns in declaration order.
// This is the valid domain of an AxisSelection.
func (d *Dataset) NumericColumns() []string {
	return append([]string(nil), d.numeric...)
}

// HasColumn reports whether col exists.
func (d *Dataset) HasColumn(col string) bool {
	_, ok := d.index[col]
	return ok
}

// IsNumeric reports whether col exists and is numeric.
func (d *Dataset) IsNumeric(col string) bool {
	i, ok := d.index[col]
	return ok && d.schema.Fields[i].Type.IsNumeric()
}

// Strings returns the column rendered as text, one entry per record.
func (d *Dataset) Strings(col string) ([]string, error) {
	s, err := d.column(col)
	if err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// Floats returns the column as float64 values; missing cells are NaN.
func (d *Dataset) Floats(col string) ([]float64, error) {
	s, err := d.column(col)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

// Head returns the header followed by at most n records. Float cells are
// printed the way pandas prints them: 100.0, 75.5, NaN.
func (d *Dataset) Head(n int) [][]string {
	rows := d.df.Nrow()
	if n > rows {
		n = rows
	}
	out := [][]string{d.Names()}
	if n <= 0 {
		return out
	}
	cols := make([][]string, len(d.schema.Fields))
	for j, f := range d.schema.Fields {
		s := d.df.Col(f.Name)
		if f.Type != FieldFloat {
			cols[j] = s.Records()
			continue
		}
		vals := s.Float()
		cols[j] = make([]string, len(vals))
		for i := 0; i < n; i++ {
			cols[j][i] = formatFloat(vals[i])
		}
	}
	for i := 0; i < n; i++ {
		rec := make([]string, len(cols))
		for j := range cols {
			rec[j] = cols[j][i]
		}
		out = append(out, rec)
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (d *Dataset) column(col string) (series.Series, error) {
	if !d.HasColumn(col) {
		return series.Series{}, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	s := d.df.Col(col)
	if s.Err != nil {
		return series.Series{}, fmt.Errorf("read column %q: %w", col, s.Err)
	}
	return s, nil
}
