package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"oho-chat-gateway/pkg/flow/extract"
)

// MemoCache is a bounded TTL memoization of (message, rendered history,
// session id) -> reply. It is a latency optimization only: identical text
// under a different intended context can return a stale reply, so
// correctness must never depend on a hit. Disabled by default.
type MemoCache struct {
	cache      *gocache.Cache
	maxEntries int
}

// NewMemoCache returns nil when ttl <= 0 (cache disabled); a nil cache is
// safe to call.
func NewMemoCache(ttl time.Duration, maxEntries int) *MemoCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &MemoCache{
		cache:      gocache.New(ttl, ttl),
		maxEntries: maxEntries,
	}
}

// Key hashes the full turn context so that the same message with different
// history never collides.
func (c *MemoCache) Key(message, memory, sessionID string) string {
	h := sha256.New()
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(memory))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *MemoCache) Get(key string) (extract.Reply, bool) {
	if c == nil {
		return extract.Reply{}, false
	}
	if x, found := c.cache.Get(key); found {
		return x.(extract.Reply), true
	}
	return extract.Reply{}, false
}

// Set stores a reply unless the cache is full. Entries age out by TTL;
// there is no eviction beyond that.
func (c *MemoCache) Set(key string, reply extract.Reply) {
	if c == nil {
		return
	}
	if c.cache.ItemCount() >= c.maxEntries {
		return
	}
	c.cache.Set(key, reply, gocache.DefaultExpiration)
}
