package answercache

import (
	"context"
	"sync"
	"time"

	"github.com/campushelp/canvas-assistant/internal/domain/assistant"
	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

type cachedRecord struct {
	payload   knowledge.QARecord
	expiresAt time.Time
}

// MemoryCache is an in-process assistant.AnswerCache used for tests and as the
// fallback when no Valkey address is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedRecord
}

// NewMemoryCache constructs a cache backed by process memory.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cachedRecord)}
}

// Get implements assistant.AnswerCache.
func (c *MemoryCache) Get(_ context.Context, question string) (knowledge.QARecord, bool, error) {
	if question == "" {
		return knowledge.QARecord{}, false, nil
	}
	c.mu.RLock()
	entry, ok := c.entries[question]
	c.mu.RUnlock()
	if !ok {
		return knowledge.QARecord{}, false, nil
	}
	if hasExpired(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, question)
		c.mu.Unlock()
		return knowledge.QARecord{}, false, nil
	}
	return entry.payload, true, nil
}

// Save implements assistant.AnswerCache.
func (c *MemoryCache) Save(_ context.Context, record knowledge.QARecord, ttl time.Duration) error {
	if record.Question == "" {
		return nil
	}
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[record.Question] = cachedRecord{payload: record, expiresAt: exp}
	return nil
}

// Invalidate drops every cached entry.
func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedRecord)
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ assistant.AnswerCache = (*MemoryCache)(nil)
