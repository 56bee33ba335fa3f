package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL bounds how stale a cached catalog may get.
	DefaultCacheTTL = 300 * time.Second
	// DefaultFetchTimeout bounds a shared upstream fetch.
	DefaultFetchTimeout = 10 * time.Second
)

type cacheObserver interface {
	IncCacheHit()
	IncCacheMiss()
	IncFetchError()
}

type cacheEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// CachedSource memoizes another Source for a fixed time-to-live per
// catalog/sheet pair. Errors are never cached. Concurrent misses share one
// upstream fetch that runs detached from any single caller's cancellation.
type CachedSource struct {
	next         Source
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	observer     cacheObserver

	mu      sync.Mutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

// CachedSourceParams configures a CachedSource.
type CachedSourceParams struct {
	Source       Source
	TTL          time.Duration
	FetchTimeout time.Duration
	Observer     cacheObserver
}

// NewCachedSource wraps params.Source with a TTL cache.
func NewCachedSource(params CachedSourceParams) *CachedSource {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	timeout := params.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &CachedSource{
		next:         params.Source,
		ttl:          ttl,
		fetchTimeout: timeout,
		now:          time.Now,
		observer:     params.Observer,
		entries:      make(map[string]cacheEntry),
	}
}

// TTL returns the configured time-to-live.
func (c *CachedSource) TTL() time.Duration {
	return c.ttl
}

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context, catalogID, sheetName string) (Snapshot, error) {
	key := cacheKey(catalogID, sheetName)

	if snapshot, ok := c.lookup(key); ok {
		c.hit()
		return snapshot, nil
	}
	c.miss()

	ch := c.group.DoChan(key, func() (any, error) {
		if snapshot, ok := c.lookup(key); ok {
			return snapshot, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		snapshot, err := c.next.Fetch(fetchCtx, catalogID, sheetName)
		if err != nil {
			return Snapshot{}, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{snapshot: snapshot, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.fetchError()
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

// Invalidate drops the cached entry for catalogID/sheetName.
func (c *CachedSource) Invalidate(catalogID, sheetName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(catalogID, sheetName))
}

func (c *CachedSource) lookup(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

func (c *CachedSource) hit() {
	if c.observer != nil {
		c.observer.IncCacheHit()
	}
}

func (c *CachedSource) miss() {
	if c.observer != nil {
		c.observer.IncCacheMiss()
	}
}

func (c *CachedSource) fetchError() {
	if c.observer != nil {
		c.observer.IncFetchError()
	}
}

func cacheKey(catalogID, sheetName string) string {
	return catalogID + "\x00" + sheetName
}
