package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"hoteldash/internal/core"
	"hoteldash/internal/sources"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DefaultTable is queried when no table is configured.
const DefaultTable = "bookings"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Source reads every row of one table. Column types come from the driver
// where it reports them; declared schema types take precedence.
type Source struct {
	db     *sql.DB
	driver string
	table  string
	schema core.Schema
	owned  bool
}

var _ sources.Loader = (*Source)(nil)

// Open connects with the given driver and verifies the connection.
func Open(ctx context.Context, driver, dsn, table string, schema core.Schema) (*Source, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s, err := New(db, driver, table, schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an open handle. The caller keeps ownership of db.
func New(db *sql.DB, driver, table string, schema core.Schema) (*Source, error) {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Source{db: db, driver: driver, table: table, schema: schema}, nil
}

// Close releases the connection pool when Open created it.
func (s *Source) Close() error {
	if s.owned && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Name implements sources.Loader
func (s *Source) Name() string {
	return s.driver + ":" + s.table
}

// Load implements sources.Loader
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	if s.db == nil {
		return nil, core.NewDataLoadError(s.Name(), errors.New("database not initialized"))
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.quote(s.table))
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), fmt.Errorf("query table: %w", err))
	}
	defer rows.Close()

	records, detected, err := scanRecords(rows)
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}

	ds, err := core.FromRecords(records, s.schema.Merge(detected))
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}

	n, cols := ds.Shape()
	slog.InfoContext(ctx, "Dataset loaded from database",
		"driver", s.driver,
		"table", s.table,
		"rows", n,
		"columns", cols)
	return ds, nil
}

func (s *Source) quote(ident string) string {
	q := `"`
	if s.driver == DriverMySQL {
		q = "`"
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}

// scanRecords reads all rows as text. NULL becomes the empty cell, which the
// dataset treats as missing.
func scanRecords(rows *sql.Rows) ([][]string, core.Schema, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, core.Schema{}, fmt.Errorf("read columns: %w", err)
	}
	var detected core.Schema
	if types, err := rows.ColumnTypes(); err == nil {
		for _, ct := range types {
			if ft, ok := fieldType(ct.DatabaseTypeName()); ok {
				detected.Fields = append(detected.Fields, core.Field{Name: ct.Name(), Type: ft})
			}
		}
	}

	records := [][]string{cols}
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, core.Schema{}, fmt.Errorf("scan row: %w", err)
		}
		rec := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Schema{}, fmt.Errorf("iterate rows: %w", err)
	}
	return records, detected, nil
}

// fieldType maps a driver type name onto a column type. Unknown names are
// left to value-based detection.
func fieldType(dbType string) (core.FieldType, bool) {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	switch {
	case t == "":
		return "", false
	case strings.Contains(t, "INT"):
		return core.FieldInt, true
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return core.FieldFloat, true
	case strings.Contains(t, "BOOL"):
		return core.FieldBool, true
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return core.FieldString, true
	default:
		return "", false
	}
}
