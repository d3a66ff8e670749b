package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"hoteldash/internal/core"
	applog "hoteldash/internal/log"

	_ "modernc.org/sqlite"
)

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

// ImportRecord is one row of the import history.
type ImportRecord struct {
	ID         int64
	Source     string
	Table      string
	Rows       int
	Columns    int
	ImportedAt time.Time
}

// SQLiteStore writes datasets into a SQLite file that the sqlite source can
// read back.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// the migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the handle so a reader can share the connection pool.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// ReplaceTable recreates table with the columns of ds and copies every
// record into it, all in one transaction. Missing cells are stored as NULL.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, table, source string, ds *core.Dataset) (ImportRecord, error) {
	if !tableRe.MatchString(table) {
		return ImportRecord{}, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	schema := ds.Schema()
	records := ds.Head(ds.Len())
	rows, cols := ds.Shape()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return ImportRecord{}, fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, schema)); err != nil {
		return ImportRecord{}, fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, schema))
	if err != nil {
		return ImportRecord{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(schema.Fields))
	for _, rec := range records[1:] {
		for i := range args {
			args[i] = cellValue(rec[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return ImportRecord{}, fmt.Errorf("insert row: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, table_name, rows, columns) VALUES (?, ?, ?, ?)`,
		source, table, rows, cols)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("record import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ImportRecord{}, fmt.Errorf("read import id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportRecord{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Dataset imported to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		"id", id,
		"source", source,
		"table", table,
		"rows", rows,
		"columns", cols)

	return ImportRecord{ID: id, Source: source, Table: table, Rows: rows, Columns: cols, ImportedAt: time.Now()}, nil
}

// Imports returns the import history, newest first.
func (s *SQLiteStore) Imports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, table_name, rows, columns, imported_at FROM imports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Table, &r.Rows, &r.Columns, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func createTableSQL(table string, schema core.Schema) string {
	defs := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		defs[i] = quote(f.Name) + " " + sqlType(f.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
}

func insertSQL(table string, schema core.Schema) string {
	names := make([]string, len(schema.Fields))
	marks := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = quote(f.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func sqlType(t core.FieldType) string {
	switch t {
	case core.FieldInt:
		return "INTEGER"
	case core.FieldFloat:
		return "REAL"
	case core.FieldBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// cellValue maps the dataset's missing markers to NULL.
func cellValue(s string) any {
	switch s {
	case "", "NaN":
		return nil
	}
	return s
}
