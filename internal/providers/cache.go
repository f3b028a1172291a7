package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ResponseCache memoizes chat completions for identical requests within one
// run. Concurrent callers with the same key share a single provider call.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]ChatResult
	hits    int
	misses  int

	group singleflight.Group
}

// NewResponseCache creates an empty cache.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{entries: make(map[string]ChatResult)}
}

// CacheKey builds a stable key from provider, model, operation and the input
// identity. Identity values are whitespace-normalized before hashing, so
// reflowed text maps to the same key.
func CacheKey(provider, model, operation string, identity map[string]string) string {
	normalized := make(map[string]string, len(identity))
	for k, v := range identity {
		normalized[k] = strings.Join(strings.Fields(v), " ")
	}
	// Map keys marshal in sorted order.
	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return "response:" + strings.ToLower(strings.TrimSpace(provider)) + ":" +
		strings.TrimSpace(model) + ":" +
		strings.ToLower(strings.TrimSpace(operation)) + ":" +
		hex.EncodeToString(sum[:])
}

// Do returns the cached result for key or calls fn once to fill it. Cached
// results carry zero cost since no provider call was made. Failed calls are
// not cached.
func (c *ResponseCache) Do(key string, fn func() (*ChatResult, error)) (*ChatResult, bool, error) {
	if res, ok := c.lookup(key); ok {
		return res, true, nil
	}

	called := false
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		_, ok := c.entries[key]
		c.mu.Unlock()
		if ok {
			return nil, nil
		}
		called = true
		res, err := fn()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = *res
		c.misses++
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	if called {
		return v.(*ChatResult), false, nil
	}

	c.mu.Lock()
	c.hits++
	entry := c.entries[key]
	c.mu.Unlock()
	entry.CostUSD = 0
	return &entry, true, nil
}

func (c *ResponseCache) lookup(key string) (*ChatResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.hits++
	entry.CostUSD = 0
	return &entry, true
}

// Stats returns the hit and miss counts.
func (c *ResponseCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
