// Package cache holds read-through views of knowledge data, invalidated by
// tag after writes.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"

	"chronicle/internal/config"
	"chronicle/internal/store"
)

const defaultBufferItems = 64

// Cache stores values under a key plus the versions of the tags the value
// depends on. Invalidating a tag bumps its version, so every entry that
// depended on it becomes unreachable immediately; ristretto evicts the
// leftovers.
//
// The version table is bounded by maxTags. When it fills, the table is
// cleared and the epoch bumped, which orphans every stored entry.
type Cache struct {
	store *ristretto.Cache

	mu       sync.Mutex
	epoch    uint64
	versions map[string]uint64
	maxTags  int
}

func New(cfg config.CacheConfig) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: defaultBufferItems,
		// Costs count entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cache{store: store, versions: map[string]uint64{}, maxTags: cfg.MaxTags}, nil
}

func (c *Cache) Close() {
	c.store.Close()
}

// versionedKey must be computed before a value is loaded so a concurrent
// invalidation lands the value under a stale key.
func (c *Cache) versionedKey(key string, tags []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s", c.epoch, key)
	for _, tag := range sorted {
		fmt.Fprintf(&b, "|%s:%d", tag, c.versions[tag])
	}
	return b.String()
}

func (c *Cache) Get(key string, tags ...string) (any, bool) {
	return c.store.Get(c.versionedKey(key, tags))
}

func (c *Cache) Set(key string, value any, tags ...string) {
	c.set(c.versionedKey(key, tags), value)
}

func (c *Cache) set(versioned string, value any) {
	c.store.Set(versioned, value, 1)
	// Sets are buffered; wait so the next Get observes this one.
	c.store.Wait()
}

// Invalidate drops every cached view that depends on any of tags.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		if _, ok := c.versions[tag]; !ok && c.maxTags > 0 && len(c.versions) >= c.maxTags {
			c.epoch++
			clear(c.versions)
		}
		c.versions[tag]++
	}
}

// Load returns the cached value for key or calls load and caches its result.
// Errors are never cached.
func Load[T any](ctx context.Context, c *Cache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	versioned := c.versionedKey(key, tags)
	if value, ok := c.store.Get(versioned); ok {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.set(versioned, value)
	return value, nil
}

// EntityTag covers a single entity view, e.g. "location-12".
func EntityTag(kind store.Kind, id int64) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

// ListTag covers the list of a kind in a world, e.g. "locations-3".
func ListTag(kind store.Kind, worldID int64) string {
	return fmt.Sprintf("%s-%d", kind.Plural(), worldID)
}

// EntityEventsTag covers the events view of one entity, e.g. "location-12-events".
func EntityEventsTag(kind store.Kind, id int64) string {
	return fmt.Sprintf("%s-%d-events", kind, id)
}

// EventsTag covers a world's event list, e.g. "events-3".
func EventsTag(worldID int64) string {
	return fmt.Sprintf("events-%d", worldID)
}

func WorldTag(id int64) string {
	return fmt.Sprintf("world-%d", id)
}

const WorldsTag = "worlds"
