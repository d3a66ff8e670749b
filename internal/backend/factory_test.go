package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hoteldash/internal/config"
)

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "hotels.csv")
	if err := os.WriteFile(csvPath, []byte("hotel,adr\nResort,10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  string
	}{
		{"memory", Config{Type: MemoryBackend}, "memory:sample", ""},
		{"csv", Config{Type: CSVBackend, DataPath: csvPath, CSVDelimiter: ','}, "csv:" + csvPath, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "h.db"), SQLTable: "bookings"}, "sqlite:bookings", ""},
		{"csv without path", Config{Type: CSVBackend}, "", "data path is required"},
		{"postgres without dsn", Config{Type: PostgresBackend}, "", "SQL DSN is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "", "Spreadsheet ID is required"},
		{"unknown", Config{Type: "excel"}, "", "invalid backend type"},
	}

	f := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}
			if got := res.Loader.Name(); got != tt.wantName {
				t.Fatalf("Name() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestMemoryBackendLoads(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	ds, err := res.Loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() == 0 {
		t.Fatal("empty dataset")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataSource: "csv", DataPath: "x.csv", CSVDelimiter: ";", SQLTable: "bookings"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if bc.Type != CSVBackend || bc.DataPath != "x.csv" || bc.CSVDelimiter != ';' {
		t.Fatalf("unexpected backend config: %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataSource: "excel"}); err == nil {
		t.Fatal("expected error for invalid source")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 6 || got[0] != "csv" || got[5] != "memory" {
		t.Fatalf("unexpected types: %v", got)
	}
}
