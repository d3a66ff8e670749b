package backend

import (
	"context"
	"fmt"
	"log/slog"

	"hoteldash/internal/core"
	applog "hoteldash/internal/log"
	"hoteldash/internal/sources/csvfile"
	"hoteldash/internal/sources/google"
	"hoteldash/internal/sources/memory"
	"hoteldash/internal/sources/sqldb"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	schema core.Schema
}

// NewFactory creates a new backend factory. Every loader it builds declares
// the hotel bookings schema.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
		schema: core.DefaultSchema(),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLBackend(ctx, sqldb.DriverSQLite, config.SQLiteDBPath, config.SQLTable)
	case PostgresBackend:
		return f.createSQLBackend(ctx, sqldb.DriverPostgres, config.SQLDSN, config.SQLTable)
	case MySQLBackend:
		return f.createSQLBackend(ctx, sqldb.DriverMySQL, config.SQLDSN, config.SQLTable)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	src := csvfile.New(config.DataPath, f.schema, core.CSVOptions{Delimiter: config.CSVDelimiter})

	f.logger.Info("Initialized CSV source",
		"path", config.DataPath,
		"delimiter", string(config.CSVDelimiter))

	return &BackendResult{Loader: src}, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, driver, dsn, table string) (*BackendResult, error) {
	src, err := sqldb.Open(ctx, driver, dsn, table, f.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s source: %w", driver, err)
	}

	f.logger.Info("Initialized SQL source", "driver", driver, "table", table)

	return &BackendResult{
		Loader:  src,
		Cleanup: src.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	svc, err := google.NewServiceFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	src := google.New(svc, config.GoogleSpreadsheetID, config.GoogleSheetRange, f.schema)

	f.logger.Info("Initialized Google Sheets source", "range", config.GoogleSheetRange)

	return &BackendResult{Loader: src}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory source with bundled sample")

	return &BackendResult{Loader: memory.NewSample(f.schema)}, nil
}
