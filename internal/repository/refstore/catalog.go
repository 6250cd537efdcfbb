package refstore

import (
	"sync"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

// Catalog holds the loaded reference datasets, one per entity type. Reads
// and replacements may race when a resync runs while requests are in
// flight, hence the lock.
type Catalog struct {
	mu       sync.RWMutex
	datasets map[entity.Type]*refdata.Dataset
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{datasets: make(map[entity.Type]*refdata.Dataset)}
}

// Put replaces the dataset for an entity type.
func (c *Catalog) Put(e entity.Type, ds *refdata.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets[e] = ds
}

// Dataset returns the dataset for an entity type (nil when never loaded).
func (c *Catalog) Dataset(e entity.Type) *refdata.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasets[e]
}

// Loaded reports whether at least one non-empty dataset is present.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ds := range c.datasets {
		if !ds.Empty() {
			return true
		}
	}
	return false
}
