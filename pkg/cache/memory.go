package cache

import (
	"context"
	"sync"
	"time"

	"github.com/proxyintel/client-go/pkg/query"
)

// memoryEntry is one cached (address, options, result) record.
type memoryEntry struct {
	ip       string
	opts     query.Options
	result   query.IPResult
	storedAt time.Time
}

// Memory is the reference in-process Provider. Entries live in a plain
// slice guarded by a mutex; writes append without deduplicating, and an
// eviction sweep before every read or write discards entries whose age
// has reached the configured max age. When duplicate records exist for
// the same key, the most recently stored one wins.
type Memory struct {
	mu      sync.Mutex
	entries []memoryEntry
	maxAge  time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// NewMemory creates an in-memory cache. A non-positive maxAge selects
// DefaultMaxAge.
func NewMemory(maxAge time.Duration) *Memory {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Memory{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// GetOne returns the cached result for ip under an equivalent options
// set, or ok=false when none exists.
func (m *Memory) GetOne(_ context.Context, ip string, opts query.Options) (query.IPResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict()

	found := false
	var result query.IPResult
	for _, e := range m.entries {
		if e.ip == ip && query.Equivalent(e.opts, opts) {
			// Keep scanning: a later entry supersedes an earlier one.
			result = e.result
			found = true
		}
	}
	if found {
		CacheHits.WithLabelValues("memory").Inc()
	} else {
		CacheMisses.WithLabelValues("memory").Inc()
	}
	return result, found
}

// GetMany returns a result for every requested address that has an
// unexpired, options-equivalent record. Addresses without one are
// absent from the returned map.
func (m *Memory) GetMany(_ context.Context, ips []string, opts query.Options) map[string]query.IPResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict()

	wanted := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		wanted[ip] = struct{}{}
	}

	out := make(map[string]query.IPResult)
	for _, e := range m.entries {
		if _, ok := wanted[e.ip]; !ok {
			continue
		}
		if query.Equivalent(e.opts, opts) {
			out[e.ip] = e.result
		}
	}

	CacheHits.WithLabelValues("memory").Add(float64(len(out)))
	CacheMisses.WithLabelValues("memory").Add(float64(len(ips) - len(out)))
	return out
}

// SetMany records each result under opts with the current timestamp.
func (m *Memory) SetMany(_ context.Context, results map[string]query.IPResult, opts query.Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evict()

	now := m.now()
	for ip, r := range results {
		m.entries = append(m.entries, memoryEntry{
			ip:       ip,
			opts:     opts,
			result:   r,
			storedAt: now,
		})
	}
	CacheEntries.Set(float64(len(m.entries)))
}

// Len reports the current entry count, expired entries included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evict discards entries whose age has reached maxAge. Callers must
// hold mu.
func (m *Memory) evict() {
	now := m.now()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if now.Sub(e.storedAt) < m.maxAge {
			kept = append(kept, e)
		} else {
			CacheEvictions.Inc()
		}
	}
	m.entries = kept
	CacheEntries.Set(float64(len(m.entries)))
}
