package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rashee1997/orchestrator-sub000/internal/telemetry"
	"github.com/rashee1997/orchestrator-sub000/types"
)

// CacheEntry is one cached retrieval result.
type CacheEntry struct {
	Items     []types.RetrievedContextItem
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (e *CacheEntry) fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

type cacheNode struct {
	key        string
	entry      *CacheEntry
	lastTouch  time.Time
	prev, next *cacheNode
}

// Cache is an in-process LRU with a stale-fallback read path: an expired
// entry is not evicted on a failed freshness check, only on capacity
// pressure, so RetrieveForPrompt's wall-clock/internal-error fallback can
// still return it.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*cacheNode
	head     *cacheNode
	tail     *cacheNode
	metrics  *telemetry.Metrics
}

// SetMetrics wires a Prometheus metrics handle so every Get call records a
// hit or miss. Passing nil (the default) disables recording.
func (c *Cache) SetMetrics(m *telemetry.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// NewCache builds an LRU cache capped at capacity entries with the given
// freshness TTL.
func NewCache(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheNode),
	}
}

// Key canonicalizes (agentId, prompt, options) into a cache key. Every
// option field that affects the retrieval result is included, and
// TargetFilePaths is sorted before hashing so its order does not change
// the key.
func Key(agentId types.AgentId, prompt string, opts types.RetrievalOptions) string {
	targetPaths := append([]string(nil), opts.TargetFilePaths...)
	sort.Strings(targetPaths)
	canon := struct {
		AgentId          types.AgentId
		Prompt           string
		Intent           types.QueryIntent
		TopK             int
		TargetFilePaths  []string
		IncludeWebSearch bool
		MinRelevance     float64
	}{
		AgentId:          agentId,
		Prompt:           prompt,
		Intent:           opts.Intent,
		TopK:             opts.TopK,
		TargetFilePaths:  targetPaths,
		IncludeWebSearch: opts.IncludeWebSearch,
		MinRelevance:     opts.MinRelevance,
	}
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached entry and whether it is still within TTL. found
// is true whenever a key exists at all, even if stale — callers use
// (found, fresh) together: fresh ⇒ use directly; found && !fresh ⇒
// fallback candidate only.
func (c *Cache) Get(key string) (entry *CacheEntry, found bool, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		c.metrics.RecordCacheMiss()
		return nil, false, false
	}
	c.moveToHead(node)
	node.lastTouch = time.Now()
	c.metrics.RecordCacheHit()
	return node.entry, true, node.entry.fresh(time.Now())
}

// Set always succeeds, even when called after a partial pipeline
// failure — the cache is best-effort memory, not a transactional store.
func (c *Cache) Set(key string, items []types.RetrievedContextItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &CacheEntry{Items: items, CreatedAt: now, ExpiresAt: now.Add(c.ttl)}

	if node, ok := c.items[key]; ok {
		node.entry = entry
		node.lastTouch = now
		c.moveToHead(node)
		return
	}

	if c.capacity > 0 && len(c.items) >= c.capacity {
		c.evictOldestFraction(0.3)
	}

	node := &cacheNode{key: key, entry: entry, lastTouch: now}
	c.items[key] = node
	c.addToHead(node)
}

func (c *Cache) addToHead(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *Cache) removeNode(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

func (c *Cache) moveToHead(node *cacheNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

// evictOldestFraction removes the oldest floor(fraction*len) entries (at
// least one) by lastTouch, per the documented "30% oldest" cleanup policy.
func (c *Cache) evictOldestFraction(fraction float64) {
	n := len(c.items)
	if n == 0 {
		return
	}
	toEvict := int(float64(n) * fraction)
	if toEvict < 1 {
		toEvict = 1
	}

	nodes := make([]*cacheNode, 0, n)
	for _, node := range c.items {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].lastTouch.Before(nodes[j].lastTouch)
	})
	for i := 0; i < toEvict && i < len(nodes); i++ {
		delete(c.items, nodes[i].key)
		c.removeNode(nodes[i])
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
