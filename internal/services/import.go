package services

import (
	"context"
	"fmt"

	"hoteldash/internal/amqp"
	"hoteldash/internal/core"
	applog "hoteldash/internal/log"
	"hoteldash/internal/sources"
	"hoteldash/internal/storage"
)

// TableWriter stores a dataset under a table name.
type TableWriter interface {
	ReplaceTable(ctx context.Context, table, source string, ds *core.Dataset) (storage.ImportRecord, error)
}

// Importer copies a dataset from a loader into the SQLite store.
type Importer struct {
	loader    sources.Loader
	writer    TableWriter
	publisher Publisher
	table     string
}

func NewImporter(loader sources.Loader, writer TableWriter, publisher Publisher, table string) *Importer {
	if table == "" {
		table = "bookings"
	}
	return &Importer{loader: loader, writer: writer, publisher: publisher, table: table}
}

// Run loads the dataset, replaces the target table and announces the import.
// Load failures are returned as *core.DataLoadError.
func (i *Importer) Run(ctx context.Context) (storage.ImportRecord, error) {
	log := applog.NewStructuredLogger(applog.FromContext(ctx))
	fields := applog.NewFields()
	fields[applog.FieldSource] = i.loader.Name()

	ds, err := i.loader.Load(ctx)
	if err != nil {
		log.LogError(ctx, "Import failed", err, applog.ComponentImport, applog.OpLoad, fields)
		return storage.ImportRecord{}, err
	}

	rec, err := i.writer.ReplaceTable(ctx, i.table, i.loader.Name(), ds)
	if err != nil {
		err = fmt.Errorf("import into %s: %w", i.table, err)
		log.LogError(ctx, "Import failed", err, applog.ComponentImport, applog.OpImport, fields)
		return storage.ImportRecord{}, err
	}

	log.LogImportCompleted(ctx, i.loader.Name(), i.table, rec.Rows, rec.Columns)

	Announce(ctx, i.publisher, nil, amqp.EventDatasetImported, i.loader.Name(), ds)
	return rec, nil
}
