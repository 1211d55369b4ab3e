package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains response-cache configuration for the demo HTTP server.
// This is a coarser cache layer than LoadingCache (loadingcache.go): it sits in
// front of the whole engine and caches serialized HTTP responses, the
// way the teacher's Manager cached rendered PNG tiles.
type Config struct {
	TileCacheSizeMB int
	TileTTL         time.Duration
	QueryCacheSize  int
}

// Manager manages the HTTP response-level region cache and a small
// metadata query cache, both shared across requests to one server
// process.
type Manager struct {
	tileCache  *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	tileCacheConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.TileTTL,
		CleanWindow:        cfg.TileTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       1024 * 1024, // 1MB per region response
		HardMaxCacheSize:   cfg.TileCacheSizeMB,
		Verbose:            false,
	}

	tileCache, err := bigcache.New(context.Background(), tileCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("cache: creating region cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("cache: creating query cache: %w", err)
	}

	return &Manager{
		tileCache:  tileCache,
		queryCache: queryCache,
	}, nil
}

// GetRegion retrieves a previously-rendered region response from cache.
func (m *Manager) GetRegion(key string) ([]byte, bool) {
	data, err := m.tileCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetRegion stores a region response in cache.
func (m *Manager) SetRegion(key string, data []byte) error {
	return m.tileCache.Set(key, data)
}

// GetQuery retrieves a cached metadata query result.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a metadata query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// RegionKey generates an HTTP response-cache key for one region read,
// scoped to a dataset root and resolution level so that two roots (or
// two resolution levels of the same root) never collide.
func RegionKey(rootID string, level, z, c, t, x, y, w, h int) string {
	return fmt.Sprintf("region:%s:%d:%d/%d/%d:%d,%d+%dx%d",
		rootID, level, z, c, t, x, y, w, h)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"region_cache_len": m.tileCache.Len(),
		"region_cache_cap": m.tileCache.Capacity(),
		"query_cache_len":  m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.tileCache.Close()
}
