package catalog

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Cache owns the currently served catalog snapshot and rechecks the store
// for a newer active config version at most once per interval. Readers get
// the snapshot from an atomic pointer and never block on a rebuild; the
// mutex only serializes the recheck bookkeeping, and a reader that finds it
// held simply serves the snapshot it already has.
type Cache struct {
	store    *Store
	interval time.Duration

	snapshot atomic.Pointer[Catalog]

	mu            sync.Mutex
	lastChecked   time.Time
	servedVersion string
}

// NewCache creates a cache over the given store. It serves the empty
// catalog until the first successful reload.
func NewCache(store *Store, interval time.Duration) *Cache {
	c := &Cache{store: store, interval: interval}
	c.snapshot.Store(Empty())
	return c
}

// GetActive returns the current catalog snapshot, refreshing it first if
// the recheck interval has elapsed. It never fails: when no version is
// active or the store is unreachable the previous (possibly empty) snapshot
// keeps being served.
func (c *Cache) GetActive(ctx context.Context) *Catalog {
	if !c.mu.TryLock() {
		// Another goroutine is already rechecking.
		return c.snapshot.Load()
	}

	if time.Since(c.lastChecked) >= c.interval {
		c.reloadLocked(ctx)
	}
	c.mu.Unlock()

	return c.snapshot.Load()
}

// ForceReload rebuilds the snapshot immediately, ignoring the interval.
// It reports whether the recheck succeeded (a store failure returns false
// and leaves the previous snapshot in place).
func (c *Cache) ForceReload(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

// ServedVersion returns the id of the config version currently served,
// or "" when the empty sentinel is being served.
func (c *Cache) ServedVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.servedVersion
}

// reloadLocked checks the store for the active version and swaps the
// snapshot if it changed. Callers must hold mu.
func (c *Cache) reloadLocked(ctx context.Context) bool {
	c.lastChecked = time.Now()

	version, err := c.store.GetActiveVersion(ctx)
	if err != nil {
		log.Printf("catalog: reload check failed, keeping version %q: %v", c.servedVersion, err)
		return false
	}

	if version == nil {
		if c.servedVersion != "" {
			log.Printf("catalog: no active config version, serving empty catalog")
			c.snapshot.Store(Empty())
			c.servedVersion = ""
		}
		return true
	}

	if version.ID == c.servedVersion {
		return true
	}

	patterns, err := c.store.ListEnabledPatterns(ctx, version.ID)
	if err != nil {
		log.Printf("catalog: loading patterns for version %s failed, keeping version %q: %v", version.ID, c.servedVersion, err)
		return false
	}
	templates, err := c.store.ListEnabledTemplates(ctx, version.ID)
	if err != nil {
		log.Printf("catalog: loading templates for version %s failed, keeping version %q: %v", version.ID, c.servedVersion, err)
		return false
	}

	built := Build(version, patterns, templates)
	c.snapshot.Store(built)
	c.servedVersion = version.ID

	counts := built.Counts()
	log.Printf("catalog: now serving version %s (%s): %d positive, %d negative, %d synonym patterns, %d templates",
		version.ID, version.Name, counts.Positives, counts.Negatives, counts.Synonyms, counts.Templates)
	return true
}
