package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory implements domain.Cache in process memory with a size bound. When
// the entry count exceeds maxEntries, the oldest insertions are evicted
// first; there is no access-frequency tracking. Safe for concurrent use,
// last write wins.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	order      []orderItem
	maxEntries int
	seq        uint64

	now func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
	seq       uint64
}

// orderItem records insertion order. Entries superseded by a later Set leave
// stale items behind; eviction skips them by comparing seq.
type orderItem struct {
	key string
	seq uint64
}

const defaultMaxEntries = 256

// NewMemory creates a bounded in-memory cache.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Memory{
		entries:    make(map[string]*memEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns (nil, nil) for absent and expired keys alike; both require a
// refetch and callers are not meant to tell them apart.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}

	return e.value, nil
}

// Set stores a value with the given TTL, evicting oldest insertions when the
// bound is exceeded.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = &memEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
		seq:       c.seq,
	}
	c.order = append(c.order, orderItem{key: key, seq: c.seq})

	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if e, ok := c.entries[oldest.key]; ok && e.seq == oldest.seq {
			delete(c.entries, oldest.key)
		}
	}

	return nil
}

// Delete removes a single key.
func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// DeletePrefix removes every key under the given prefix.
func (c *Memory) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}

	return nil
}

// Clear removes all cached values.
func (c *Memory) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memEntry)
	c.order = nil

	return nil
}

// Len reports the live entry count, for tests and stats.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
