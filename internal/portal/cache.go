package portal

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"yogaportal/pkg/metrics"
	"yogaportal/pkg/model"
)

type cacheEntry struct {
	key       string
	data      any
	timestamp time.Time
}

// Cache is the response cache for marketplace reads. An entry is live while
// now - timestamp < ttl. The entry count is bounded; the oldest write goes
// first when the bound is hit.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	max     int
	now     func() time.Time
	group   *singleflight.Group

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type CacheOptions struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
	SingleFlight  bool
	Now           func() time.Time
}

func NewCache(opts CacheOptions) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     opts.TTL,
		max:     opts.MaxEntries,
		now:     opts.Now,
		stop:    make(chan struct{}),
	}
	if opts.SingleFlight {
		c.group = &singleflight.Group{}
	}
	if opts.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(opts.SweepInterval)
	}
	return c
}

// CacheKey joins the endpoint name and the canonical encoding of params.
func CacheKey(endpoint string, params any) string {
	return endpoint + ":" + model.CanonicalParams(params)
}

func (c *Cache) live(e *cacheEntry) bool {
	return c.now().Sub(e.timestamp) < c.ttl
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if !c.live(e) {
		c.removeLocked(el)
		metrics.RecordCacheEviction("expired")
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Set(key string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	for c.max > 0 && c.order.Len() >= c.max {
		c.removeLocked(c.order.Front())
		metrics.RecordCacheEviction("capacity")
	}

	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, data: data, timestamp: c.now()})
	metrics.CacheEntries.Set(float64(c.order.Len()))
}

// Invalidate drops every entry whose key starts with prefix.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(el)
			n++
		}
	}
	metrics.CacheEntries.Set(float64(c.order.Len()))
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Sweep removes expired entries.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !c.live(el.Value.(*cacheEntry)) {
			c.removeLocked(el)
			n++
		}
		el = next
	}
	if n > 0 {
		metrics.CacheEvictionsTotal.WithLabelValues("expired").Add(float64(n))
	}
	metrics.CacheEntries.Set(float64(c.order.Len()))
	return n
}

func (c *Cache) removeLocked(el *list.Element) {
	e := c.order.Remove(el).(*cacheEntry)
	delete(c.entries, e.key)
}

func (c *Cache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}

// Load returns the live entry for key or runs fetch and caches a successful
// result. Concurrent misses on one key share a single fetch when single-flight
// is enabled; the shared fetch ignores the cancellation of whichever caller
// started it, and each caller stops waiting when its own ctx is done. fresh
// skips the lookup but still stores the result.
func (c *Cache) Load(ctx context.Context, key string, fresh bool, fetch func(context.Context) (any, error)) (data any, hit bool, err error) {
	if !fresh {
		if v, ok := c.Get(key); ok {
			return v, true, nil
		}
	}

	run := func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	}

	if c.group == nil || fresh {
		v, err := run(ctx)
		return v, false, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return run(shared)
	})

	select {
	case res := <-ch:
		return res.Val, false, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
