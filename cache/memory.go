// Package cache provides caching implementations for Warrant
// authorization results.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/datafed/warrant"
	"github.com/datafed/warrant/identity"
)

// Compile-time interface check.
var _ warrant.Cache = (*Memory)(nil)

// Memory is an in-memory LRU-like cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	result    *warrant.AuthResult
	subjects  identity.Set
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached authorization result.
func (m *Memory) Get(_ context.Context, subjects identity.Set, op warrant.Operation, pid string) (*warrant.AuthResult, bool) {
	key := cacheKey(subjects, op, pid)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// Set stores an authorization result in the cache.
func (m *Memory) Set(_ context.Context, subjects identity.Set, op warrant.Operation, pid string, result *warrant.AuthResult) {
	key := cacheKey(subjects, op, pid)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict oldest entry.
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		result:    result,
		subjects:  subjects,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateObject removes all cached results for an object.
func (m *Memory) InvalidateObject(_ context.Context, pid string) {
	prefix := pid + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}

// InvalidateSubject removes all cached results whose resolved subject
// set contains the given subject.
func (m *Memory) InvalidateSubject(_ context.Context, subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.subjects.Has(subject) {
			delete(m.entries, k)
		}
	}
}

// cacheKey builds a key from the object, operation, and the resolved
// subject set. Subjects are sorted so equal sets key identically.
func cacheKey(subjects identity.Set, op warrant.Operation, pid string) string {
	return pid + "\x00" + string(op) + "\x00" + strings.Join(subjects.Slice(), "\x1f")
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
