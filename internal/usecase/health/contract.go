package health

import "context"

// StorePinger checks reference store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DatasetChecker reports whether reference datasets are loaded.
type DatasetChecker interface {
	Loaded() bool
}
