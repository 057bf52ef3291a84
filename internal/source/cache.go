package source

import (
	"fmt"
	"sync"

	"github.com/tablemesh/tablemesh/internal/model"
)

// changesCacheKey identifies one get_commit_state call's result: the table
// base path plus the checkpoint version it was computed from.
type changesCacheKey struct {
	basePath     string
	startVersion string
}

// ChangesCache is the bounded, single-writer, per-adapter-instance cache
// populated by GetCommitState and consulted by subsequent GetCommit calls
// within the same sync round. Each method holds an internal mutex, so single
// calls are safe from several goroutines; the adapters that embed it are
// still not reentrant, matching the single-threaded-cooperative-per-round
// scheduling model.
type ChangesCache struct {
	mu       sync.Mutex
	maxItems int
	order    []changesCacheKey
	entries  map[changesCacheKey][]model.Commit
}

// NewChangesCache builds a cache holding at most maxItems distinct
// (base_path, start_version) entries, evicting the oldest on overflow.
func NewChangesCache(maxItems int) *ChangesCache {
	if maxItems <= 0 {
		maxItems = 8
	}
	return &ChangesCache{
		maxItems: maxItems,
		entries:  make(map[changesCacheKey][]model.Commit),
	}
}

func key(basePath string, start model.VersionToken) changesCacheKey {
	return changesCacheKey{basePath: basePath, startVersion: start.Raw}
}

// Put records the parsed commit list for one (base_path, start_version)
// round, evicting the oldest entry if the cache is full.
func (c *ChangesCache) Put(basePath string, start model.VersionToken, commits []model.Commit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(basePath, start)
	if _, exists := c.entries[k]; !exists {
		if len(c.order) >= c.maxItems {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = commits
}

// Get returns the cached commit list for (base_path, start_version), if any.
func (c *ChangesCache) Get(basePath string, start model.VersionToken) ([]model.Commit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	commits, ok := c.entries[key(basePath, start)]
	return commits, ok
}

// Invalidate drops every entry, called at round end or on adapter
// reinitialization.
func (c *ChangesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = nil
	c.entries = make(map[changesCacheKey][]model.Commit)
}

func (c *ChangesCache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("ChangesCache{entries=%d/%d}", len(c.entries), c.maxItems)
}
