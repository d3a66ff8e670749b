// Command hoteldash-import copies the configured data source into the SQLite
// store so the dashboard can later run with DATA_SOURCE=sqlite.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"hoteldash/internal/amqp"
	"hoteldash/internal/backend"
	"hoteldash/internal/cli"
	"hoteldash/internal/config"
	"hoteldash/internal/core"
	"hoteldash/internal/services"
	"hoteldash/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(config.Load().LogLevel)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.DataSource == config.SourceSQLite {
		cli.Fatal(logger, "Import source must not be the SQLite store itself", "source", cfg.DataSource)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid data source configuration", "error", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data source", "error", err, "source", cfg.DataSource)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, import event disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	logger.Info("Starting import",
		"source", result.Loader.Name(),
		"database", cfg.SQLiteDBPath,
		"table", cfg.SQLTable)

	rec, err := services.NewImporter(result.Loader, store, publisher, cfg.SQLTable).Run(ctx)
	if err != nil {
		var dle *core.DataLoadError
		if errors.As(err, &dle) {
			cli.Fatal(logger, "Error loading data", "source", dle.Source, "error", dle.Err)
		}
		cli.Fatal(logger, "Import failed", "error", err)
	}

	history, err := store.Imports(ctx, 5)
	if err != nil {
		logger.Warn("Failed to read import history", "error", err)
	}
	logger.Info("Import finished",
		"id", rec.ID,
		"rows", rec.Rows,
		"columns", rec.Columns,
		"recent_imports", len(history))
}
