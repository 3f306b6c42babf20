package loader

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-dashboard/internal/model"
	"github.com/jwalitptl/clinic-dashboard/pkg/metrics"
)

// CacheConfig controls how long a loaded dataset is reused.
// TTL bounds staleness even when the file's stat info does not change.
type CacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             10 * time.Minute,
		CleanupInterval: 30 * time.Minute,
	}
}

type cachedDataset struct {
	dataset *model.Dataset
	size    int64
	modTime time.Time
}

// CachedLoader memoizes a DatasetLoader against its source file. A cached
// dataset is reused while the file's size and modification time are unchanged.
// Failed loads are never cached.
type CachedLoader struct {
	next    DatasetLoader
	cache   *cache.Cache
	metrics *metrics.Metrics
	stat    func(string) (os.FileInfo, error)
	mu      sync.Mutex
}

func NewCachedLoader(next DatasetLoader, cfg CacheConfig, m *metrics.Metrics) *CachedLoader {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCacheConfig().CleanupInterval
	}
	return &CachedLoader{
		next:    next,
		cache:   cache.New(cfg.TTL, cfg.CleanupInterval),
		metrics: m,
		stat:    os.Stat,
	}
}

func (c *CachedLoader) Source() string {
	return c.next.Source()
}

func (c *CachedLoader) Load(ctx context.Context) (*model.Dataset, error) {
	key := c.next.Source()

	if ds, ok := c.lookup(key); ok {
		c.hit()
		return ds, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have filled the entry while we waited.
	if ds, ok := c.lookup(key); ok {
		c.hit()
		return ds, nil
	}
	if c.metrics != nil {
		c.metrics.WorkbookCacheMisses.Inc()
	}

	// Stat before reading so a file replaced mid-read fails the next lookup.
	info, statErr := c.stat(key)

	ds, err := c.next.Load(ctx)
	if err != nil {
		return ds, err
	}
	if statErr != nil {
		return ds, nil
	}
	c.cache.Set(key, &cachedDataset{
		dataset: ds,
		size:    info.Size(),
		modTime: info.ModTime(),
	}, cache.DefaultExpiration)
	return ds, nil
}

// Invalidate drops the cached dataset so the next Load rereads the workbook.
func (c *CachedLoader) Invalidate() {
	c.cache.Delete(c.next.Source())
	if inv, ok := c.next.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

func (c *CachedLoader) lookup(key string) (*model.Dataset, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	entry := v.(*cachedDataset)

	info, err := c.stat(key)
	if err != nil || info.Size() != entry.size || !info.ModTime().Equal(entry.modTime) {
		c.cache.Delete(key)
		return nil, false
	}
	return entry.dataset, true
}

func (c *CachedLoader) hit() {
	if c.metrics != nil {
		c.metrics.WorkbookCacheHits.Inc()
	}
}
