package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/collabmatch/internal/geo"
)

const (
	// DefaultCacheTTL is how long resolved locations are kept.
	DefaultCacheTTL = 24 * time.Hour

	forwardKeyPrefix = "geocode:fwd:"
	reverseKeyPrefix = "geocode:rev:"
)

// CacheConfig configures a CachedResolver.
type CacheConfig struct {
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics *Metrics
}

// CachedResolver memoizes successful lookups of another Resolver in Redis.
// Failures are never cached. When Redis is unreachable lookups go straight
// to the wrapped resolver.
type CachedResolver struct {
	next    Resolver
	rdb     redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// NewCachedResolver wraps next with a Redis cache.
func NewCachedResolver(next Resolver, rdb redis.Cmdable, cfg CacheConfig) *CachedResolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CachedResolver{
		next:    next,
		rdb:     rdb,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Geocode implements Resolver.
func (c *CachedResolver) Geocode(ctx context.Context, address string) (*Result, error) {
	key := ForwardKey(address)
	return c.lookup(ctx, key, func() (*Result, error) {
		return c.next.Geocode(ctx, address)
	})
}

// ReverseGeocode implements Resolver.
func (c *CachedResolver) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (*Result, error) {
	key := ReverseKey(coord)
	return c.lookup(ctx, key, func() (*Result, error) {
		return c.next.ReverseGeocode(ctx, coord)
	})
}

func (c *CachedResolver) lookup(ctx context.Context, key string, resolve func() (*Result, error)) (*Result, error) {
	if res, ok := c.get(ctx, key); ok {
		c.metrics.observeCache(true)
		return res, nil
	}
	c.metrics.observeCache(false)

	res, err := resolve()
	c.metrics.observeLookup(err)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, res)
	return res, nil
}

func (c *CachedResolver) get(ctx context.Context, key string) (*Result, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("geocode cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Warn("discarding corrupt geocode cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return &res, true
}

func (c *CachedResolver) set(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("geocode cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// ForwardKey is the cache key for an address lookup. Addresses are
// compared case-insensitively with surrounding whitespace ignored.
func ForwardKey(address string) string {
	return forwardKeyPrefix + strings.ToLower(strings.TrimSpace(address))
}

// ReverseKey is the cache key for a coordinate lookup, rounded to six
// decimal places.
func ReverseKey(c geo.Coordinate) string {
	return reverseKeyPrefix +
		strconv.FormatFloat(c.Latitude, 'f', 6, 64) + "_" +
		strconv.FormatFloat(c.Longitude, 'f', 6, 64)
}
