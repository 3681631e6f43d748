package server

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 512
	defaultCacheTTL     = 5 * time.Minute
)

// cacheEntry holds a serialized response along with the time it was stored.
type cacheEntry struct {
	body     []byte
	storedAt time.Time
}

// resultCache memoizes engine responses keyed by route and request body.
// Entries older than ttl are treated as misses and evicted on access.
type resultCache struct {
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// newResultCache returns nil when size is zero, disabling caching.
func newResultCache(size int, ttl time.Duration) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{cache: c, ttl: ttl, now: time.Now}, nil
}

// cacheKey hashes the route, its path parameter and the compacted body.
func cacheKey(route, param string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write([]byte(param))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.body, true
}

func (c *resultCache) put(key string, body []byte) {
	if c == nil {
		return
	}
	c.cache.Add(key, cacheEntry{body: body, storedAt: c.now()})
}

func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.cache.Purge()
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
