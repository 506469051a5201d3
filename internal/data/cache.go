package data

import (
	"strings"
	"sync"

	"community-load/internal/model"
)

// FileCache keeps decoded building files for the lifetime of one pipeline execution, so a
// building drawn again in a later run is not decoded twice. Entries are keyed by path and
// the ReadOptions they were decoded with. Cached values are shared and must be treated as
// read-only.
type FileCache struct {
	mu    sync.RWMutex
	store map[string]*model.Timeseries
	hits  int
}

func NewFileCache() *FileCache {
	return &FileCache{store: make(map[string]*model.Timeseries)}
}

func cacheKey(path string, opts ReadOptions) string {
	cols := "*"
	if opts.Columns != nil {
		cols = strings.Join(opts.Columns, "\x1f")
	}
	return path + "\x00" + opts.IDColumn + "\x00" + cols
}

// Get retrieves a file decoded with opts, if present
func (c *FileCache) Get(path string, opts ReadOptions) (*model.Timeseries, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.store[cacheKey(path, opts)]
	if ok {
		c.hits++
	}
	return ts, ok
}

// Set stores a file decoded with opts
func (c *FileCache) Set(path string, opts ReadOptions, ts *model.Timeseries) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[cacheKey(path, opts)] = ts
}

// Stats returns the number of cached files and cache hits so far.
func (c *FileCache) Stats() (files, hits int) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store), c.hits
}

// Clear removes all entries from the cache
func (c *FileCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*model.Timeseries)
}
