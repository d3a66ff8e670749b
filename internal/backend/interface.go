package backend

import (
	"context"

	"hoteldash/internal/sources"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the dataset loader and optional cleanup function
type BackendResult struct {
	Loader  sources.Loader
	Cleanup CleanupFunc
}

// Factory creates loaders based on configuration
type Factory interface {
	// CreateBackend creates a loader for the configured data source
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for loader creation
type Config struct {
	Type BackendType

	// CSV specific
	DataPath     string
	CSVDelimiter rune

	// SQL specific
	SQLDSN       string
	SQLTable     string
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetRange    string
}

// BackendType represents the kind of data source
type BackendType string

const (
	CSVBackend      BackendType = "csv"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MySQLBackend    BackendType = "mysql"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, PostgresBackend, MySQLBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
