package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/zeebo/blake3"

	"ccdsync/internal/cif"
)

// DocumentCache holds parsed documents keyed by the blake3 digest of their
// text, so identical files are parsed once. Safe for concurrent use.
type DocumentCache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	hits   int
	misses int
}

// NewDocumentCache creates a cache holding at most maxEntries documents.
// Zero means no limit.
func NewDocumentCache(maxEntries int) *DocumentCache {
	return &DocumentCache{lru: lru.New(maxEntries)}
}

// Digest returns the cache key for a text.
func Digest(text []byte) [32]byte {
	return blake3.Sum256(text)
}

// Parse returns the cached document for text, parsing it on a miss. The
// returned document is shared and must not be modified.
func (c *DocumentCache) Parse(text []byte) *cif.Document {
	key := Digest(text)

	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		return v.(*cif.Document)
	}
	c.misses++
	c.mu.Unlock()

	doc := cif.Parse(string(text))

	c.mu.Lock()
	c.lru.Add(key, doc)
	c.mu.Unlock()
	return doc
}

// Stats returns the hit and miss counts.
func (c *DocumentCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached documents.
func (c *DocumentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
