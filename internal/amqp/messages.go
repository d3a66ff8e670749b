package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types, also used as routing keys on the topic exchange.
const (
	EventDatasetLoaded   = "dataset.loaded"
	EventDatasetImported = "dataset.imported"
)

// DatasetEvent announces that a dataset became available to the dashboard.
type DatasetEvent struct {
	Type             string    `json:"type"`
	Source           string    `json:"source"`
	Rows             int       `json:"rows"`
	Columns          int       `json:"columns"`
	NumericColumns   []string  `json:"numeric_columns,omitempty"`
	RevenueAvailable bool      `json:"revenue_available"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewDatasetEvent creates an event stamped with the current time
func NewDatasetEvent(eventType, source string, rows, cols int, numeric []string, revenue bool) *DatasetEvent {
	return &DatasetEvent{
		Type:             eventType,
		Source:           source,
		Rows:             rows,
		Columns:          cols,
		NumericColumns:   numeric,
		RevenueAvailable: revenue,
		Timestamp:        time.Now(),
	}
}

// Validate checks the event before publishing
func (m *DatasetEvent) Validate() error {
	switch m.Type {
	case EventDatasetLoaded, EventDatasetImported:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.Source == "" {
		return fmt.Errorf("event source is empty")
	}
	if m.Rows < 0 || m.Columns < 0 {
		return fmt.Errorf("negative dataset shape (%d, %d)", m.Rows, m.Columns)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *DatasetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetEventFromJSON creates a message from JSON bytes
func DatasetEventFromJSON(data []byte) (*DatasetEvent, error) {
	var msg DatasetEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
