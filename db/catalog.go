package db

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Catalog is a minimal in-memory table registry. It satisfies the single
// contract the core consumes from a catalog collaborator: look up a table's
// TupleDesc by its table id. It also registers tables and looks them up by
// name, which the driver needs but the core does not depend on. The
// registry is held in memory only; nothing in it is persisted.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]*HeapFile
	byID   map[int32]*HeapFile
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*HeapFile),
		byID:   make(map[int32]*HeapFile),
	}
}

// AddTable registers a HeapFile under name, keyed internally by the table
// id the HeapFile derived from its backing path.
func (c *Catalog) AddTable(name string, file *HeapFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[name] = file
	c.byID[file.tableID] = file
}

// GetTupleDesc looks up a table's schema by table id.
func (c *Catalog) GetTupleDesc(tableID int32) (*TupleDesc, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byID[tableID]
	if !ok {
		return nil, newError(IncompatibleTypesError, "no table registered with id %d", tableID)
	}
	return f.Descriptor(), nil
}

// GetTableByName looks up a registered HeapFile by the name it was added
// under.
func (c *Catalog) GetTableByName(name string) (*HeapFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byName[name]
	if !ok {
		return nil, newError(IncompatibleTypesError, "no table named %q", name)
	}
	return f, nil
}

// Range calls fn once per registered table name, in sorted order.
func (c *Catalog) Range(fn func(name string)) {
	c.mu.RLock()
	names := maps.Keys(c.byName)
	c.mu.RUnlock()

	slices.Sort(names)
	for _, name := range names {
		fn(name)
	}
}
