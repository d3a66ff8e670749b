package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data sources accepted by DATA_SOURCE.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceSheets   = "sheets"
	SourceMemory   = "memory"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type Config struct {
	// HTTP Server
	Port string

	// Dataset
	DataSource   string
	DataPath     string
	CSVDelimiter string
	PreviewRows  int

	// SQL sources
	SQLDSN       string
	SQLTable     string
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetRange    string

	// View cache
	CacheBackend  string
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Chart requests per minute per client; 0 disables the limit
	ChartRateLimit int

	// AMQP
	AMQPURL      string
	AMQPExchange string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8501"),

		DataSource:   getEnv("DATA_SOURCE", SourceCSV),
		DataPath:     getEnv("DATA_PATH", "hotels.csv"),
		CSVDelimiter: getEnv("CSV_DELIMITER", ","),
		PreviewRows:  getEnvInt("PREVIEW_ROWS", 5),

		SQLDSN:       getEnv("SQL_DSN", ""),
		SQLTable:     getEnv("SQL_TABLE", "bookings"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hoteldash.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "Bookings"),

		CacheBackend:  getEnv("CACHE_BACKEND", CacheMemory),
		CacheTTL:      getEnvDuration("CACHE_TTL", 10*time.Minute),
		CacheSize:     getEnvInt("CACHE_SIZE", 128),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ChartRateLimit: getEnvInt("CHART_RATE_LIMIT", 120),

		// AMQP is optional; events are published only when a URL is set.
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hoteldash"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Delimiter returns the first rune of CSVDelimiter. "\t" and "tab" select a tab.
func (c *Config) Delimiter() rune {
	switch c.CSVDelimiter {
	case `\t`, "tab":
		return '\t'
	}
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validSources := []string{SourceCSV, SourceSQLite, SourcePostgres, SourceMySQL, SourceSheets, SourceMemory}
	if !slices.Contains(validSources, c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validSources))
	}

	switch c.DataSource {
	case SourceCSV:
		if c.DataPath == "" {
			errors = append(errors, "data path cannot be empty when using csv source")
		}
		if d := c.CSVDelimiter; d != `\t` && d != "tab" && len([]rune(d)) != 1 {
			errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", d))
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case SourcePostgres, SourceMySQL:
		if c.SQLDSN == "" {
			errors = append(errors, fmt.Sprintf("SQL DSN is required when using %s source", c.DataSource))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetRange == "" {
			errors = append(errors, "Google Sheet range is required when using sheets source")
		}
	}

	if c.PreviewRows < 0 || c.PreviewRows > 100 {
		errors = append(errors, fmt.Sprintf("invalid preview rows %d: must be between 0 and 100", c.PreviewRows))
	}

	// Validate cache configuration
	validCaches := []string{CacheMemory, CacheRedis, CacheNone}
	if !slices.Contains(validCaches, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validCaches))
	}
	if c.CacheBackend != CacheNone {
		if c.CacheTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
		} else if c.CacheTTL > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
		}
	}
	if c.CacheBackend == CacheMemory && (c.CacheSize < 1 || c.CacheSize > 10000) {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 10000", c.CacheSize))
	}
	if c.CacheBackend == CacheRedis && c.RedisAddr == "" {
		errors = append(errors, "Redis address cannot be empty when using redis cache")
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must be between 0 and 15", c.RedisDB))
	}

	if c.ChartRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid chart rate limit %d: must not be negative", c.ChartRateLimit))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
