package sources

import (
	"context"

	"hoteldash/internal/core"
)

// Loader reads an external tabular resource into a Dataset. Load is called
// once at startup; any error it returns is a core.DataLoadError.
type Loader interface {
	Load(ctx context.Context) (*core.Dataset, error)
	// Name identifies the source in logs and events.
	Name() string
}
