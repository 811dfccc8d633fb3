package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config configures an LRU.
type Config struct {
	// MaxSize is the maximum number of resident entries.
	// Default: 100
	MaxSize int

	// DefaultTTL applies when Set is called without an explicit TTL.
	// Default: 60 seconds
	DefaultTTL time.Duration

	// Clock overrides the time source. Default: wall clock.
	Clock Clock
}

// ConfigFromMillis builds a Config from the maxSize/defaultTtlMs option pair
// used in provider configuration. Non-positive values select the defaults.
func ConfigFromMillis(maxSize int, defaultTTLMs int64) Config {
	return Config{
		MaxSize:    maxSize,
		DefaultTTL: time.Duration(defaultTTLMs) * time.Millisecond,
	}
}

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// LRU is a bounded cache with per-entry TTL and least-recently-used eviction.
//
// Every method holds a single mutex for its whole duration, so each call is
// atomic and calls observe a total order. No goroutines are started.
type LRU[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	clock      Clock
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	onEvict    func(key string, value V)
}

// New creates an LRU with the given configuration.
func New[V any](cfg Config) *LRU[V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	return &LRU[V]{
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		clock:      cfg.Clock,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

// OnEvict registers fn to be called for each entry removed to make room for a
// new key. It is not called for Delete, Clear, or expiry. fn runs after the
// cache lock is released and may call back into the cache.
func (c *LRU[V]) OnEvict(fn func(key string, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key. An expired entry is removed and reported as
// a miss. A hit moves the entry to the most recently used position without
// changing its expiry.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[V])
	if e.expired(c.clock.Now()) {
		c.removeElement(el)
		return zero, false
	}

	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key, replacing any existing entry and making
// it the most recently used. A non-positive ttl selects the default TTL; there
// is no way to store an entry that is already expired. Use Delete to drop a
// key instead.
//
// When the cache is full, least recently used entries are evicted before the
// new entry is inserted, so replacing an existing key never evicts another.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	evicted := c.setLocked(key, value, ttl)
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e.key, e.value)
		}
	}
}

func (c *LRU[V]) setLocked(key string, value V, ttl time.Duration) []*entry[V] {
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	var evicted []*entry[V]
	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		evicted = append(evicted, oldest.Value.(*entry[V]))
	}

	now := c.clock.Now()
	c.items[key] = c.order.PushFront(&entry[V]{
		key:       key,
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	})
	return evicted
}

// Has reports whether key holds a live value. It is implemented with Get, so
// it also removes an expired entry and promotes a live one.
func (c *LRU[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether an entry was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear removes every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats removes every expired entry, then reports the live size and the
// configured capacity.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(c.clock.Now())
	return Stats{Size: c.order.Len(), MaxSize: c.maxSize}
}

// Len returns the number of resident entries, including expired entries that
// have not been reaped yet.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns resident keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// MaxSize returns the configured capacity.
func (c *LRU[V]) MaxSize() int {
	return c.maxSize
}

// DefaultTTL returns the TTL applied when Set omits one.
func (c *LRU[V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Must be called with lock held.
func (c *LRU[V]) sweepLocked(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[V]).expired(now) {
			c.removeElement(el)
		}
		el = next
	}
}

// Must be called with lock held.
func (c *LRU[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
