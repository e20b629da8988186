package redis

import (
	"context"

	"github.com/edulearn-hub/enrollment-hub/internal/domain/enrollment"
)

// EnrollmentCache implements enrollment.Cache on top of the generic Redis
// cache. Aggregates are cached whole, progress entries included: the hot
// read path (a video player polling its own enrollment) always wants both.
type EnrollmentCache struct {
	cache *Cache
}

// NewEnrollmentCache creates a new EnrollmentCache.
func NewEnrollmentCache(cache *Cache) *EnrollmentCache {
	return &EnrollmentCache{cache: cache}
}

// Get returns a cached enrollment or ErrCacheMiss.
func (c *EnrollmentCache) Get(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	if err := c.cache.Get(ctx, EnrollmentKey(id), &enr); err != nil {
		return nil, err
	}
	return &enr, nil
}

// Set stores an enrollment with the standard TTL.
func (c *EnrollmentCache) Set(ctx context.Context, enr *enrollment.Enrollment) error {
	if enr == nil {
		return nil
	}
	return c.cache.Set(ctx, EnrollmentKey(enr.ID), enr, TTLEnrollmentCache)
}

// Invalidate drops an enrollment from the cache. Called after every write
// to the aggregate.
func (c *EnrollmentCache) Invalidate(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, EnrollmentKey(id))
}
