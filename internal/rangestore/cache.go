package rangestore

import (
	"fmt"
	"sync"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/monitoring"
)

// Loader produces the range table for a mode.
type Loader func(mode gait.Mode) (*gait.RangeTable, error)

// Cache holds at most one loaded table per mode. Tables are loaded on first
// Get and shared read-only afterwards. The zero value is not usable; build
// one with NewCache or NewFileCache and pass it to whoever needs it.
type Cache struct {
	mu     sync.RWMutex
	tables map[gait.Mode]*gait.RangeTable
	load   Loader
}

// NewCache returns a cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{tables: make(map[gait.Mode]*gait.RangeTable), load: load}
}

// NewFileCache returns a cache that loads each mode from paths[mode].
func NewFileCache(fsys fsutil.FileSystem, paths map[gait.Mode]string) *Cache {
	return NewCache(func(mode gait.Mode) (*gait.RangeTable, error) {
		path, ok := paths[mode]
		if !ok || path == "" {
			return nil, &gait.ConfigurationError{Path: "<unset>", Err: fmt.Errorf("no range table configured for %s mode", mode)}
		}
		monitoring.Logf("loading %s ranges from %s", mode, path)
		return Load(fsys, path)
	})
}

// Get returns the table for mode, loading it on first use. Failed loads
// are not cached.
func (c *Cache) Get(mode gait.Mode) (*gait.RangeTable, error) {
	if !mode.Valid() {
		return nil, &gait.UnknownModeError{Mode: string(mode)}
	}

	c.mu.RLock()
	table, ok := c.tables[mode]
	c.mu.RUnlock()
	if ok {
		return table, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if table, ok := c.tables[mode]; ok {
		return table, nil
	}
	if c.load == nil {
		return nil, &gait.ConfigurationError{Path: "<unset>", Err: fmt.Errorf("no loader for %s mode", mode)}
	}
	table, err := c.load(mode)
	if err != nil {
		return nil, err
	}
	c.tables[mode] = table
	return table, nil
}

// Put stores table for mode, replacing any cached value.
func (c *Cache) Put(mode gait.Mode, table *gait.RangeTable) error {
	if !mode.Valid() {
		return &gait.UnknownModeError{Mode: string(mode)}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[mode] = table
	return nil
}

// Invalidate drops the cached table for mode so the next Get reloads it.
func (c *Cache) Invalidate(mode gait.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, mode)
}

// Loaded reports whether mode currently has a cached table.
func (c *Cache) Loaded(mode gait.Mode) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[mode]
	return ok
}

// LoadTask returns the ranges for task under mode, or *gait.UnknownTaskError.
func LoadTask(c *Cache, mode gait.Mode, task string) (gait.TaskRanges, error) {
	table, err := c.Get(mode)
	if err != nil {
		return nil, err
	}
	return table.Task(task)
}
