package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"hoteldash/internal/core"
	"hoteldash/internal/sources/sqldb"
)

func testDataset(t *testing.T) *core.Dataset {
	t.Helper()
	csv := "hotel,adr,stays_in_weekend_nights,stays_in_week_nights,country\n" +
		"Resort Hotel,100,1,2,PRT\n" +
		"City Hotel,75.5,0,1,\n" +
		"City Hotel,NA,1,1,GBR\n"
	ds, err := core.FromCSV(strings.NewReader(csv), core.DefaultSchema(), core.CSVOptions{})
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	return ds
}

func TestReplaceTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "hoteldash.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	rec, err := store.ReplaceTable(ctx, "bookings", "csv:test.csv", testDataset(t))
	if err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}
	if rec.Rows != 3 || rec.Columns != 5 || rec.ID == 0 {
		t.Fatalf("unexpected import record %+v", rec)
	}

	src, err := sqldb.New(store.DB(), sqldb.DriverSQLite, "bookings", core.DefaultSchema())
	if err != nil {
		t.Fatalf("sqldb.New: %v", err)
	}
	ds, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rows, cols := ds.Shape(); rows != 3 || cols != 5 {
		t.Fatalf("shape=(%d,%d), want (3,5)", rows, cols)
	}

	totals, err := core.NewPipeline(ds).GroupedRevenue(core.GroupHotel)
	if err != nil {
		t.Fatalf("GroupedRevenue: %v", err)
	}
	want := []core.GroupRevenue{{Group: "Resort Hotel", Total: 300}, {Group: "City Hotel", Total: 75.5}}
	if len(totals) != len(want) {
		t.Fatalf("totals=%v, want %v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Fatalf("totals[%d]=%v, want %v", i, totals[i], want[i])
		}
	}
}

func TestReplaceTableOverwritesAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hoteldash.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ds := testDataset(t)
	for i := 0; i < 2; i++ {
		if _, err := store.ReplaceTable(ctx, "bookings", "csv:test.csv", ds); err != nil {
			t.Fatalf("ReplaceTable #%d: %v", i, err)
		}
	}

	var n int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "bookings"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows=%d, want 3 after replace", n)
	}

	history, err := store.Imports(ctx, 10)
	if err != nil {
		t.Fatalf("Imports: %v", err)
	}
	if len(history) != 2 || history[0].ID <= history[1].ID {
		t.Fatalf("history=%+v, want 2 entries newest first", history)
	}
}

func TestReplaceTableRejectsInvalidName(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hoteldash.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	_, err = store.ReplaceTable(context.Background(), "bookings; DROP TABLE imports", "x", testDataset(t))
	if !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hoteldash.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations #%d: %v", i, err)
		}
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"NaN", nil},
		{"PRT", "PRT"},
		{"0", "0"},
	}
	for _, tt := range tests {
		if got := cellValue(tt.in); got != tt.want {
			t.Errorf("cellValue(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}
