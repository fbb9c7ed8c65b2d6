package ratel

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// CacheStats tracks program cache counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// CacheConfig configures a ProgramCache.
type CacheConfig struct {
	// MaxEntries bounds the number of cached programs.
	MaxEntries int
	// TTL expires entries that have not been touched; zero disables expiry.
	TTL time.Duration
	// OnEvict is called for every evicted program.
	OnEvict func(src string, p *Program)
}

// ProgramCache is a thread-safe LRU cache of compiled programs keyed by
// source text. Programs are immutable, so a cached hit is freely shareable
// across goroutines.
type ProgramCache struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front is most recent
	cfg   CacheConfig
	stats CacheStats
}

type cacheEntry struct {
	src    string
	prog   *Program
	expiry time.Time
}

// NewProgramCache creates a cache. A zero MaxEntries defaults to 256.
func NewProgramCache(cfg CacheConfig) *ProgramCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 256
	}
	return &ProgramCache{
		items: make(map[string]*list.Element),
		order: list.New(),
		cfg:   cfg,
	}
}

// Get returns the cached program for src, refreshing its recency and TTL.
func (c *ProgramCache) Get(src string) (*Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[src]
	if !ok {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if !ent.expiry.IsZero() && time.Now().After(ent.expiry) {
		c.remove(el)
		atomic.AddInt64(&c.stats.Evictions, 1)
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false
	}
	if c.cfg.TTL > 0 {
		ent.expiry = time.Now().Add(c.cfg.TTL)
	}
	c.order.MoveToFront(el)
	atomic.AddInt64(&c.stats.Hits, 1)
	return ent.prog, true
}

// Put stores a compiled program, evicting least-recently-used entries to
// stay within MaxEntries.
func (c *ProgramCache) Put(src string, p *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[src]; ok {
		c.remove(el)
	}
	for len(c.items) >= c.cfg.MaxEntries {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.remove(back)
		atomic.AddInt64(&c.stats.Evictions, 1)
	}
	ent := &cacheEntry{src: src, prog: p}
	if c.cfg.TTL > 0 {
		ent.expiry = time.Now().Add(c.cfg.TTL)
	}
	c.items[src] = c.order.PushFront(ent)
}

// Compile returns the cached program for src, compiling and caching on a
// miss.
func (c *ProgramCache) Compile(src string, s *Settings) (*Program, error) {
	if p, ok := c.Get(src); ok {
		return p, nil
	}
	p, err := Compile(src, s)
	if err != nil {
		return nil, err
	}
	c.Put(src, p)
	return p, nil
}

// Remove drops src from the cache.
func (c *ProgramCache) Remove(src string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[src]
	if ok {
		c.remove(el)
	}
	return ok
}

// PurgeExpired drops every expired entry and reports how many were removed.
func (c *ProgramCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		ent := el.Value.(*cacheEntry)
		if !ent.expiry.IsZero() && now.After(ent.expiry) {
			c.remove(el)
			atomic.AddInt64(&c.stats.Evictions, 1)
			n++
		}
		el = prev
	}
	return n
}

// Clear empties the cache and resets the counters.
func (c *ProgramCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats = CacheStats{}
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the counters.
func (c *ProgramCache) Stats() CacheStats {
	return CacheStats{
		Hits:      atomic.LoadInt64(&c.stats.Hits),
		Misses:    atomic.LoadInt64(&c.stats.Misses),
		Evictions: atomic.LoadInt64(&c.stats.Evictions),
	}
}

// remove drops an element from the map and list and fires the OnEvict hook.
// The eviction counter is the caller's business: only capacity and TTL
// removals count, not explicit Remove or Put replacement.
func (c *ProgramCache) remove(el *list.Element) {
	c.order.Remove(el)
	ent := el.Value.(*cacheEntry)
	delete(c.items, ent.src)
	if c.cfg.OnEvict != nil {
		c.cfg.OnEvict(ent.src, ent.prog)
	}
}
