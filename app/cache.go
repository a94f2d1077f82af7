package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// CacheConfig controls a Store's behavior. When EnableCaching is false every
// lookup is a forced miss and writes are no-ops.
type CacheConfig struct {
	EnableCaching bool          `json:"enable_caching"`
	CacheTTL      time.Duration `json:"cache_ttl"`
	MaxCacheSize  int           `json:"max_cache_size"`
}

// CacheConfigPatch is a partial CacheConfig; nil fields are left unchanged.
type CacheConfigPatch struct {
	EnableCaching *bool          `json:"enable_caching"`
	CacheTTL      *time.Duration `json:"cache_ttl"`
	MaxCacheSize  *int           `json:"max_cache_size"`
}

// CacheStats is a point-in-time snapshot of a Store.
type CacheStats struct {
	TotalEntries   int     `json:"total_entries"`
	ValidEntries   int     `json:"valid_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	MaxSize        int     `json:"max_size"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRate        float64 `json:"hit_rate"`
}

type storeEntry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Store is a concurrent-safe keyed cache with a uniform TTL and a hard cap on
// entry count. Eviction is FIFO by creation time rather than LRU: hits do not
// refresh an entry's TTL, so there is no access-time bookkeeping to order by.
// Expired entries are logically absent immediately and physically removed
// either lazily on read or by Sweep.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]storeEntry[V]
	cfg     CacheConfig
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewStore[V any](cfg CacheConfig) *Store[V] {
	return &Store[V]{
		entries: make(map[string]storeEntry[V]),
		cfg:     cfg,
	}
}

// Set inserts or overwrites an entry. If the store is full and the key is new,
// expired entries are purged first; if still full, the oldest entries by
// creation time are evicted to make room.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.EnableCaching {
		return
	}

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.cfg.MaxCacheSize {
		s.evictLocked()
		if len(s.entries) >= s.cfg.MaxCacheSize {
			// Cap is zero (or could not be enforced); refuse the insert.
			return
		}
	}

	now := time.Now()
	s.entries[key] = storeEntry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(s.cfg.CacheTTL),
	}
}

// evictLocked makes room for one insertion: drop everything expired, then
// drop insertion-order-oldest entries until the store is below capacity.
// A shrunk cap may leave the store over capacity by more than one entry.
// A zero cap admits nothing, so there is no room to make.
// Caller must hold the write lock.
func (s *Store[V]) evictLocked() {
	now := time.Now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}

	if s.cfg.MaxCacheSize <= 0 {
		return
	}

	for len(s.entries) >= s.cfg.MaxCacheSize && len(s.entries) > 0 {
		var oldestKey string
		var oldest time.Time
		for key, entry := range s.entries {
			if oldest.IsZero() || entry.createdAt.Before(oldest) {
				oldestKey = key
				oldest = entry.createdAt
			}
		}
		delete(s.entries, oldestKey)
	}
}

// Get returns the value for key if present and unexpired. An expired entry is
// treated as a miss and opportunistically removed.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.RLock()
	enabled := s.cfg.EnableCaching
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !enabled || !ok {
		s.misses.Add(1)
		return zero, false
	}

	if !time.Now().Before(entry.expiresAt) {
		// Lazy expiry. Re-check under the write lock so a concurrent Set of a
		// fresh entry under the same key is not lost.
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && !time.Now().Before(current.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return zero, false
	}

	s.hits.Add(1)
	return entry.value, true
}

// Delete removes an entry unconditionally.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Sweep removes every expired entry and returns how many were dropped. The
// scan runs under the read lock; only the deletes take the write lock, so
// request-path lookups are never blocked for the duration of a full scan.
func (s *Store[V]) Sweep() int {
	now := time.Now()

	s.mu.RLock()
	var expired []string
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			expired = append(expired, key)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	removed := 0
	s.mu.Lock()
	for _, key := range expired {
		// Re-check: the entry may have been overwritten since the scan.
		if entry, ok := s.entries[key]; ok && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

// Clear empties the store and resets the hit/miss counters.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]storeEntry[V])
	s.mu.Unlock()
	s.hits.Store(0)
	s.misses.Store(0)
}

// Len returns the number of physically stored entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats reports entry counts and the running hit rate. The hit rate is
// hits/(hits+misses) since process start or the last Clear, and 0 before any
// lookup has happened.
func (s *Store[V]) Stats() CacheStats {
	now := time.Now()

	s.mu.RLock()
	total := len(s.entries)
	valid := 0
	for _, entry := range s.entries {
		if now.Before(entry.expiresAt) {
			valid++
		}
	}
	maxSize := s.cfg.MaxCacheSize
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()
	rate := 0.0
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}

	return CacheStats{
		TotalEntries:   total,
		ValidEntries:   valid,
		ExpiredEntries: total - valid,
		MaxSize:        maxSize,
		Hits:           hits,
		Misses:         misses,
		HitRate:        rate,
	}
}

// Config returns a snapshot of the store's current configuration.
func (s *Store[V]) Config() CacheConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig merges a partial config into the current one. Shrinking
// MaxCacheSize does not eagerly evict; the new cap is enforced on the next
// insertion.
func (s *Store[V]) UpdateConfig(patch CacheConfigPatch) CacheConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.EnableCaching != nil {
		s.cfg.EnableCaching = *patch.EnableCaching
	}
	if patch.CacheTTL != nil {
		s.cfg.CacheTTL = *patch.CacheTTL
	}
	if patch.MaxCacheSize != nil && *patch.MaxCacheSize >= 0 {
		s.cfg.MaxCacheSize = *patch.MaxCacheSize
	}
	return s.cfg
}
