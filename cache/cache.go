// Package cache is the read-through result cache used by the repository.
//
// A Store keeps opaque byte values under string keys and groups them by
// tag. Cache puts a Store behind tenant-scoped key hashing, optional
// single-flight loading and metrics. Values are whatever the caller
// serialized; the repository stores entity rows in their JSON form.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/erymuzuan/motorent-sub003/tenant"
)

// ErrMiss is returned by Store.Get for an absent or expired key.
var ErrMiss = errors.New("cache: miss")

// Store is a tagged key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	// RemoveByTag drops every entry carrying any of tags.
	RemoveByTag(ctx context.Context, tags ...string) error
}

// Cache is safe for concurrent use.
type Cache struct {
	store   Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics *Metrics
	// flight is nil unless single-flight loading is enabled. Without it,
	// concurrent misses on one key may each call the factory.
	flight *singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the lifetime used when GetOrCreate is called with ttl 0.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records lookups in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithSingleFlight makes concurrent misses on one key share a single
// factory call. The factory then runs without the callers' cancellation.
func WithSingleFlight() Option {
	return func(c *Cache) { c.flight = &singleflight.Group{} }
}

// New returns a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: 10 * time.Minute, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key hashes "tenant:key" into the key stored in the Store.
func Key(tenantID, key string) string {
	return fmt.Sprintf("jsonq:%016x", xxhash.Sum64String(tenantID+":"+key))
}

// Tags returns the tags of an entry read from schema.entity for tenantID,
// from broadest to narrowest.
func Tags(tenantID, schema, entity string) []string {
	return []string{
		"tenant:" + tenantID,
		"schema:" + tenantID + ":" + schema,
		"entity:" + tenantID + ":" + schema + "." + entity,
	}
}

// EntityTag is the narrowest tag of Tags; writes to an entity remove it.
func EntityTag(tenantID, schema, entity string) string {
	return Tags(tenantID, schema, entity)[2]
}

// GetOrCreate returns the value cached under key for the tenant on ctx,
// calling factory and storing its result on a miss. A failing store is
// logged and bypassed; a failing factory is returned and nothing is cached.
func (c *Cache) GetOrCreate(ctx context.Context, key string, ttl time.Duration, tags []string,
	factory func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	k := Key(tenant.From(ctx), key)
	v, err := c.store.Get(ctx, k)
	switch {
	case err == nil:
		c.metrics.observe(resultHit)
		return v, nil
	case errors.Is(err, ErrMiss):
		c.metrics.observe(resultMiss)
	default:
		c.metrics.observe(resultError)
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	if ttl == 0 {
		ttl = c.ttl
	}
	load := func(ctx context.Context) ([]byte, error) {
		v, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, k, v, ttl, tags); err != nil {
			c.metrics.observe(resultError)
			c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return v, nil
	}
	if c.flight == nil {
		return load(ctx)
	}

	// A shared load serves every waiter, so no single caller's cancellation
	// reaches it. Each caller stops waiting when its own ctx is done.
	ch := c.flight.DoChan(k, func() (any, error) {
		return load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			c.logger.Debug("cache load shared", zap.String("key", key))
		}
		return r.Val.([]byte), nil
	}
}

// RemoveByTag drops every entry carrying any of tags.
func (c *Cache) RemoveByTag(ctx context.Context, tags ...string) error {
	if err := c.store.RemoveByTag(ctx, tags...); err != nil {
		return fmt.Errorf("cache: remove %v: %w", tags, err)
	}
	return nil
}
