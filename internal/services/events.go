package services

import (
	"context"
	"log/slog"

	"hoteldash/internal/amqp"
	"hoteldash/internal/core"
	applog "hoteldash/internal/log"
	"hoteldash/internal/metrics"
)

// Publisher sends dataset events. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.DatasetEvent) error
}

// Announce publishes an event describing ds. A nil publisher is skipped and
// publish failures are logged only: the dataset is usable either way.
func Announce(ctx context.Context, pub Publisher, m *metrics.Metrics, eventType, source string, ds *core.Dataset) {
	if pub == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping dataset event", "type", eventType)
		return
	}
	rows, cols := ds.Shape()
	_, revErr := core.DeriveRevenue(ds)
	event := amqp.NewDatasetEvent(eventType, source, rows, cols, ds.NumericColumns(), revErr == nil)

	err := pub.Publish(ctx, event)
	m.EventPublished(eventType, err)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogPublishFailed(ctx, eventType, source, err)
	}
}
