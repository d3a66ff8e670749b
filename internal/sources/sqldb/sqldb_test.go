package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"hoteldash/internal/core"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverSQLite, filepath.Join(t.TempDir(), "bookings.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE bookings (
			hotel TEXT NOT NULL,
			lead_time INTEGER,
			stays_in_weekend_nights INTEGER,
			stays_in_week_nights INTEGER,
			adr REAL,
			country TEXT
		)`,
		`INSERT INTO bookings VALUES ('Resort Hotel', 7, 1, 2, 100, 'PRT')`,
		`INSERT INTO bookings VALUES ('City Hotel', 13, 0, 1, 75.5, NULL)`,
		`INSERT INTO bookings VALUES ('City Hotel', 2, 0, 2, NULL, 'GBR')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return db
}

func TestLoadTable(t *testing.T) {
	db := openTestDB(t)
	src, err := New(db, DriverSQLite, "", core.DefaultSchema())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ds, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rows, cols := ds.Shape(); rows != 3 || cols != 6 {
		t.Fatalf("shape=(%d,%d), want (3,6)", rows, cols)
	}

	p := core.NewPipeline(ds)
	out, err := p.GroupedRevenue(core.GroupHotel)
	if err != nil {
		t.Fatalf("GroupedRevenue: %v", err)
	}
	if out[0].Group != "Resort Hotel" || out[0].Total != 300 {
		t.Fatalf("unexpected totals: %v", out)
	}
	if out[1].Group != "City Hotel" || out[1].Total != 75.5 {
		t.Fatalf("NULL adr should be skipped in sums: %v", out)
	}
}

func TestInvalidTableName(t *testing.T) {
	db := openTestDB(t)
	for _, name := range []string{"bookings; DROP TABLE x", "1abc", "a.b.c", `"quoted"`} {
		if _, err := New(db, DriverSQLite, name, core.DefaultSchema()); err == nil {
			t.Errorf("table %q should be rejected", name)
		}
	}
}

func TestMissingTableIsDataLoadError(t *testing.T) {
	db := openTestDB(t)
	src, err := New(db, DriverSQLite, "nope", core.DefaultSchema())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = src.Load(context.Background())
	var dle *core.DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		driver, ident, want string
	}{
		{DriverSQLite, "bookings", `"bookings"`},
		{DriverPostgres, "public.bookings", `"public"."bookings"`},
		{DriverMySQL, "hotel.bookings", "`hotel`.`bookings`"},
	}
	for _, tt := range tests {
		s := &Source{driver: tt.driver}
		if got := s.quote(tt.ident); got != tt.want {
			t.Errorf("quote(%s, %s)=%s, want %s", tt.driver, tt.ident, got, tt.want)
		}
	}
}

func TestFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want core.FieldType
		ok   bool
	}{
		{"INTEGER", core.FieldInt, true},
		{"BIGINT", core.FieldInt, true},
		{"int4", core.FieldInt, true},
		{"DOUBLE PRECISION", core.FieldFloat, true},
		{"NUMERIC", core.FieldFloat, true},
		{"REAL", core.FieldFloat, true},
		{"VARCHAR", core.FieldString, true},
		{"TEXT", core.FieldString, true},
		{"BOOL", core.FieldBool, true},
		{"", "", false},
		{"BLOB", "", false},
	}
	for _, tt := range tests {
		got, ok := fieldType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("fieldType(%q)=(%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "dsn", "", core.DefaultSchema()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
