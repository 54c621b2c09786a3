package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/parcelrate/api/internal/repositories"
)

const cacheKey = "active"

// RateConfigCache serves the active tariff from memory for ttl. Concurrent misses share one read.
type RateConfigCache struct {
	repo  repositories.RateConfigRepository
	ttl   time.Duration
	clock func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	cached     *RateConfig
	loadedAt   time.Time
	generation uint64
}

var _ RateConfigSource = (*RateConfigCache)(nil)

// NewRateConfigCache constructs a cache. A zero ttl reads through on every call.
func NewRateConfigCache(repo repositories.RateConfigRepository, ttl time.Duration, clock func() time.Time) (*RateConfigCache, error) {
	if repo == nil {
		return nil, fmt.Errorf("rate config cache: repository is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &RateConfigCache{repo: repo, ttl: ttl, clock: clock}, nil
}

// Current returns a private copy of the active tariff. A missing tariff yields ErrConfigurationMissing.
func (c *RateConfigCache) Current(ctx context.Context) (*RateConfig, error) {
	if cfg := c.fresh(); cfg != nil {
		return cfg, nil
	}

	value, err, _ := c.group.Do(cacheKey, func() (any, error) {
		c.mu.RLock()
		generation := c.generation
		c.mu.RUnlock()

		cfg, err := c.repo.Active(ctx)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: no active tariff", ErrConfigurationMissing)
			}
			return nil, mapRepositoryError(err, nil, nil)
		}
		// A load that started before Invalidate must not repopulate the cache.
		c.mu.Lock()
		if c.generation == generation {
			c.cached = &cfg
			c.loadedAt = c.clock()
		}
		c.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	cfg := value.(RateConfig)
	return &cfg, nil
}

// Invalidate drops the cached tariff so the next call reads the repository, even while an older
// read is still in flight.
func (c *RateConfigCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.loadedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
	c.group.Forget(cacheKey)
}

func (c *RateConfigCache) fresh() *RateConfig {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || c.clock().Sub(c.loadedAt) >= c.ttl {
		return nil
	}
	cfg := *c.cached
	return &cfg
}
