package xnet

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheActiveEntries is the active-set bound used when a Config
// does not override it: once this many distinct handles have residual
// bytes staged at once, further Put calls fail instead of evicting —
// see stagingCache.Put.
const DefaultCacheActiveEntries = 20000

// DefaultCacheEntryBound is the per-entry byte cap used when a Config
// does not override it.
const DefaultCacheEntryBound = 2 * 1024

// stagingCache holds residual send/receive bytes per handle between
// reactor events. It is backed by hashicorp/golang-lru, but unlike a
// plain LRU it never silently evicts: capacity exhaustion is a fatal
// per-connection error (spec.md §4.2), so Put checks Len() against the
// configured bound itself and rejects the write instead of letting the
// underlying cache evict an unrelated connection's buffered bytes.
type stagingCache struct {
	entries    *lru.Cache
	maxEntries int
	maxPerKey  int
}

func newStagingCache(maxEntries, maxPerKey int) (*stagingCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheActiveEntries
	}
	if maxPerKey <= 0 {
		maxPerKey = DefaultCacheEntryBound
	}
	// golang-lru requires a strictly positive size; give it one slot of
	// headroom over the active-set bound since xnet — not the LRU —
	// enforces the real capacity policy via Len().
	c, err := lru.New(maxEntries + 1)
	if err != nil {
		return nil, newError(CodeCacheFailed, err)
	}
	return &stagingCache{entries: c, maxEntries: maxEntries, maxPerKey: maxPerKey}, nil
}

// Put appends data to whatever is already staged for key. Appending
// (rather than replacing) is the documented resolution of spec.md §9's
// open question about KVCache.Put semantics under an existing key.
func (c *stagingCache) Put(key Handle, data []byte) error {
	if existing, ok := c.entries.Get(key); ok {
		buf := existing.([]byte)
		if len(buf)+len(data) > c.maxPerKey {
			return newError(CodeSendBuffNotEnough, nil)
		}
		c.entries.Add(key, append(buf, data...))
		return nil
	}
	if c.entries.Len() >= c.maxEntries {
		return newError(CodeCacheFailed, nil)
	}
	if len(data) > c.maxPerKey {
		return newError(CodeSendBuffNotEnough, nil)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.entries.Add(key, buf)
	return nil
}

// Get removes and returns everything staged for key; the returned slice
// is the stored buffer itself, which the cache no longer references.
// ok is false if nothing was staged.
func (c *stagingCache) Get(key Handle) (data []byte, ok bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	c.entries.Remove(key)
	return v.([]byte), true
}

// Peek returns what's staged for key without removing it.
func (c *stagingCache) Peek(key Handle) (data []byte, ok bool) {
	v, ok := c.entries.Peek(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Del drops whatever is staged for key, if anything. Always called on
// connection teardown so a later handle reuse (which never happens,
// per spec.md, but defensively) can't inherit stale bytes.
func (c *stagingCache) Del(key Handle) {
	c.entries.Remove(key)
}

func (c *stagingCache) Len(key Handle) int {
	v, ok := c.entries.Peek(key)
	if !ok {
		return 0
	}
	return len(v.([]byte))
}
