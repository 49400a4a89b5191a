package cache

import (
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/hashicorp/golang-lru/v2"
	"sync"
)

type curveKey struct {
	version    uint64
	maxSamples int
}

// CurveCache memoises resampled curves. Keys include the snapshot version, so
// a new extrema set never hits a curve built from an older one.
type CurveCache struct {
	lru    *lru.Cache[curveKey, *models.SampleCurve]
	mu     sync.RWMutex
	hits   uint64
	misses uint64
}

func NewCurveCache(size int) (*CurveCache, error) {
	lruCache, err := lru.New[curveKey, *models.SampleCurve](size)
	if err != nil {
		return nil, err
	}
	return &CurveCache{lru: lruCache}, nil
}

func (c *CurveCache) Get(version uint64, maxSamples int) (*models.SampleCurve, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	curve, ok := c.lru.Get(curveKey{version: version, maxSamples: maxSamples})
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return curve, true
}

func (c *CurveCache) Add(version uint64, maxSamples int, curve *models.SampleCurve) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(curveKey{version: version, maxSamples: maxSamples}, curve)
}

// GetCacheStats returns statistics about cache hits and misses
func (c *CurveCache) GetCacheStats() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]uint64{
		"curve_hits":   c.hits,
		"curve_misses": c.misses,
	}
}
