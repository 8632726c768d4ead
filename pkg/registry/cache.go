package registry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long cached registry reads stay fresh.
const DefaultTTL = time.Hour

const (
	itemKeyPrefix = "fileData:"
	listKeyPrefix = "filesList:"
)

// CacheConfig configures the Cached wrapper. Enabled is an explicit
// construction-time choice, not a process-wide flag inspected ad hoc.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Clock   clockwork.Clock

	// OnLookup, if set, observes every cache lookup. Used to feed metrics.
	OnLookup func(key string, hit bool)
}

// Cached is a read-through/write-through TTL cache in front of any Registry.
// With caching disabled it behaves identically to the wrapped Registry, only
// slower. Entries are serialized-response-shaped values keyed the same way
// the HTTP layer keys them: fileData:<identifier> and filesList:<limit>:<offset>.
type Cached struct {
	inner Registry
	cfg   CacheConfig

	mu      sync.RWMutex
	items   map[string]cacheEntry
	listGen int // bumped on every write to invalidate list pages
}

type cacheEntry struct {
	meta      *Meta
	page      *Page
	expiresAt time.Time
	gen       int
}

// NewCached wraps inner with a TTL cache per cfg.
func NewCached(inner Registry, cfg CacheConfig) *Cached {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Cached{
		inner: inner,
		cfg:   cfg,
		items: make(map[string]cacheEntry),
	}
}

func (c *Cached) Save(ctx context.Context, meta Meta) error {
	if err := c.inner.Save(ctx, meta); err != nil {
		return err
	}
	if !c.cfg.Enabled {
		return nil
	}
	c.mu.Lock()
	delete(c.items, itemKeyPrefix+meta.Identifier)
	c.listGen++
	c.mu.Unlock()

	// Write-through via read-back: the store assigns created_at, so the
	// cached copy must come from it, not from the input metadata.
	stored, err := c.inner.Get(ctx, meta.Identifier)
	if err != nil {
		return nil // saved fine; the next Get fills the cache instead
	}
	c.mu.Lock()
	c.items[itemKeyPrefix+meta.Identifier] = cacheEntry{meta: stored, expiresAt: c.cfg.Clock.Now().Add(c.cfg.TTL)}
	c.mu.Unlock()
	return nil
}

func (c *Cached) List(ctx context.Context, limit, offset int) (Page, error) {
	key := listKey(limit, offset)
	if page, ok := c.lookupPage(key); ok {
		return *page, nil
	}

	page, err := c.inner.List(ctx, limit, offset)
	if err != nil {
		return Page{}, err
	}
	if c.cfg.Enabled {
		c.mu.Lock()
		c.items[key] = cacheEntry{page: &page, expiresAt: c.cfg.Clock.Now().Add(c.cfg.TTL), gen: c.listGen}
		c.mu.Unlock()
	}
	return page, nil
}

func (c *Cached) Get(ctx context.Context, identifier string) (*Meta, error) {
	key := itemKeyPrefix + identifier
	if meta, ok := c.lookupMeta(key); ok {
		return meta, nil
	}

	meta, err := c.inner.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if c.cfg.Enabled {
		c.mu.Lock()
		c.items[key] = cacheEntry{meta: meta, expiresAt: c.cfg.Clock.Now().Add(c.cfg.TTL)}
		c.mu.Unlock()
	}
	return meta, nil
}

func (c *Cached) Delete(ctx context.Context, identifier string) error {
	if err := c.inner.Delete(ctx, identifier); err != nil {
		return err
	}
	if c.cfg.Enabled {
		c.mu.Lock()
		delete(c.items, itemKeyPrefix+identifier)
		c.listGen++
		c.mu.Unlock()
	}
	return nil
}

func (c *Cached) lookupMeta(key string) (*Meta, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	hit := ok && entry.meta != nil && c.cfg.Clock.Now().Before(entry.expiresAt)
	c.observe(key, hit)
	if !hit {
		return nil, false
	}
	return entry.meta, true
}

func (c *Cached) lookupPage(key string) (*Page, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	gen := c.listGen
	c.mu.RUnlock()

	hit := ok && entry.page != nil && entry.gen == gen && c.cfg.Clock.Now().Before(entry.expiresAt)
	c.observe(key, hit)
	if !hit {
		return nil, false
	}
	return entry.page, true
}

func (c *Cached) observe(key string, hit bool) {
	if c.cfg.OnLookup != nil {
		c.cfg.OnLookup(key, hit)
	}
}

func listKey(limit, offset int) string {
	return listKeyPrefix + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}
