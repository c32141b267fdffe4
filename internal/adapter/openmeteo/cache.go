package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
)

// CachedSupplier wraps a SeriesSupplier with an in-memory TTL+LRU cache.
// Weather forecasts change slowly, so a short TTL absorbs repeated
// predictions for the same location without serving stale data.
type CachedSupplier struct {
	inner   SeriesSupplier
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedSupplier creates a cache decorator around a series supplier.
func NewCachedSupplier(inner SeriesSupplier, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedSupplier {
	return &CachedSupplier{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
	}
}

// setClock swaps the time source; tests use a fake clock to exercise expiry.
func (c *CachedSupplier) setClock(clk clockwork.Clock) { c.clock = clk }

func (c *CachedSupplier) FetchSeries(ctx context.Context, lat, lon float64) (*domain.Series, error) {
	// Quarter-degree key: predictions a few kilometers apart share weather.
	key := fmt.Sprintf("%.2f:%.2f", lat, lon)

	if series, storedAt, ok := c.cache.get(key); ok {
		if c.clock.Since(storedAt) <= c.ttl {
			c.metrics.SeriesCache.WithLabelValues("hit").Inc()
			return series, nil
		}
		c.metrics.SeriesCache.WithLabelValues("expired").Inc()
	} else {
		c.metrics.SeriesCache.WithLabelValues("miss").Inc()
	}

	series, err := c.inner.FetchSeries(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, series, c.clock.Now())
	return series, nil
}

// lruCache is a small thread-safe LRU for fetched series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key      string
	series   *domain.Series
	storedAt time.Time
	prev     *entry
	next     *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*domain.Series, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	c.moveToFront(e)
	return e.series, e.storedAt, true
}

func (c *lruCache) put(key string, series *domain.Series, storedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.series = series
		e.storedAt = storedAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, series: series, storedAt: storedAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
