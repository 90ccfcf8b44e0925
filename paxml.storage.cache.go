package paxml

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheConfig configures CachedStorage
type CacheConfig struct {
	// TTL bounds the age of cached entities. Default 5 minutes.
	TTL time.Duration

	// MaxEntries caps the cache; the least recently used entry is evicted.
	// Default 1000.
	MaxEntries int

	// NegativeCacheTTL bounds the age of "not found" results. Zero
	// disables negative caching.
	NegativeCacheTTL time.Duration
}

// DefaultCacheConfig returns the defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:              5 * time.Minute,
		MaxEntries:       1000,
		NegativeCacheTTL: 30 * time.Second,
	}
}

type cacheEntry struct {
	entity     *StoredEntity
	notFound   bool
	cachedAt   time.Time
	accessedAt time.Time
}

// CachedStorage caches Get results of another storage. Writes go through
// and invalidate the affected name.
type CachedStorage struct {
	storage EntityStorage
	config  CacheConfig
	logger  *zap.Logger

	mu     sync.Mutex
	cache  map[string]*cacheEntry
	closed bool
}

// NewCachedStorage wraps storage
func NewCachedStorage(storage EntityStorage, config CacheConfig, logger *zap.Logger) *CachedStorage {
	defaults := DefaultCacheConfig()
	if config.TTL == 0 {
		config.TTL = defaults.TTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = defaults.MaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStorage{
		storage: storage,
		config:  config,
		logger:  logger,
		cache:   make(map[string]*cacheEntry),
	}
}

// Get serves the latest version of name from the cache when fresh
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.fresh(entry) {
		entry.accessedAt = time.Now()
		s.mu.Unlock()
		s.logger.Debug(LogMsgStorageCacheHit, zap.String(LogFieldEntity, name))
		if entry.notFound {
			return nil, NewStoredEntityNotFoundError(name)
		}
		return copyStoredEntity(entry.entity), nil
	}
	s.mu.Unlock()

	s.logger.Debug(LogMsgStorageCacheMiss, zap.String(LogFieldEntity, name))
	e, err := s.storage.Get(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if err != nil {
		if errors.Is(err, ErrStoredEntityNotFound) && s.config.NegativeCacheTTL > 0 {
			s.add(name, nil, true)
		}
		return nil, err
	}
	s.add(name, e, false)
	return copyStoredEntity(e), nil
}

// GetVersion bypasses the cache
func (s *CachedStorage) GetVersion(ctx context.Context, name string, version int) (*StoredEntity, error) {
	return s.storage.GetVersion(ctx, name, version)
}

// Save writes through and invalidates name
func (s *CachedStorage) Save(ctx context.Context, e *StoredEntity) error {
	if err := s.storage.Save(ctx, e); err != nil {
		return err
	}
	s.Invalidate(e.Name)
	return nil
}

// Delete writes through and invalidates name
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List bypasses the cache
func (s *CachedStorage) List(ctx context.Context, query *EntityQuery) ([]*StoredEntity, error) {
	return s.storage.List(ctx, query)
}

// Exists answers from a fresh cache entry when there is one
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.fresh(entry) {
		s.mu.Unlock()
		return !entry.notFound, nil
	}
	s.mu.Unlock()
	return s.storage.Exists(ctx, name)
}

// ListVersions bypasses the cache
func (s *CachedStorage) ListVersions(ctx context.Context, name string) ([]int, error) {
	return s.storage.ListVersions(ctx, name)
}

// Close drops the cache and closes the wrapped storage
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cache = nil
	s.mu.Unlock()
	return s.storage.Close()
}

// Invalidate drops name from the cache
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, name)
}

// CacheStats describes the cache content
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

// Stats counts the cache entries
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{Entries: len(s.cache)}
	for _, entry := range s.cache {
		if !s.fresh(entry) {
			continue
		}
		if entry.notFound {
			stats.NegativeEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

func (s *CachedStorage) fresh(entry *cacheEntry) bool {
	ttl := s.config.TTL
	if entry.notFound {
		ttl = s.config.NegativeCacheTTL
	}
	return time.Since(entry.cachedAt) < ttl
}

// add stores an entry; the caller holds mu
func (s *CachedStorage) add(name string, e *StoredEntity, notFound bool) {
	if _, exists := s.cache[name]; !exists && len(s.cache) >= s.config.MaxEntries {
		s.evictOldest()
	}
	now := time.Now()
	s.cache[name] = &cacheEntry{entity: e, notFound: notFound, cachedAt: now, accessedAt: now}
}

func (s *CachedStorage) evictOldest() {
	var (
		oldestName string
		oldest     *cacheEntry
	)
	for name, entry := range s.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldestName, oldest = name, entry
		}
	}
	if oldest != nil {
		delete(s.cache, oldestName)
	}
}
