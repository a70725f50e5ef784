package policy

import "sync"

// DecisionCache holds the last known decision per (source, target, action)
// triple, plus a secondary index from the correlation id a remote evaluation
// was dispatched with back to its triple. The index is what lets an operator
// retroactively override a cached decision by request id.
//
// Writes are plain overwrites; last writer wins. There is no eviction, no
// capacity bound and no TTL: a cached decision changes only through an
// override or a process restart. Index entries are never removed, so a
// request id stays overridable for the lifetime of the process, including
// repeat overrides of the same id.
type DecisionCache struct {
	mu        sync.RWMutex
	decisions map[CacheKey]Decision
	index     map[string]CacheKey
}

// NewDecisionCache creates an empty decision cache.
func NewDecisionCache() *DecisionCache {
	return &DecisionCache{
		decisions: make(map[CacheKey]Decision),
		index:     make(map[string]CacheKey),
	}
}

// Get returns the cached decision for key, if any.
func (c *DecisionCache) Get(key CacheKey) (Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	decision, ok := c.decisions[key]
	return decision, ok
}

// Put stores decision under key, replacing any previous entry.
func (c *DecisionCache) Put(key CacheKey, decision Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.decisions[key] = decision
}

// PutIndex records that requestID was issued for key.
func (c *DecisionCache) PutIndex(requestID string, key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[requestID] = key
}

// LookupIndex resolves a request id back to the triple it was issued for.
func (c *DecisionCache) LookupIndex(requestID string) (CacheKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, ok := c.index[requestID]
	return key, ok
}

// Len returns the number of cached decisions.
func (c *DecisionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.decisions)
}
