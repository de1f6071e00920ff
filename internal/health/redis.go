package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker sends PING to Redis.
type RedisChecker struct {
	rdb redis.Cmdable
}

// NewRedisChecker creates a checker for rdb.
func NewRedisChecker(rdb redis.Cmdable) *RedisChecker {
	return &RedisChecker{rdb: rdb}
}

// HealthCheck implements Checker.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
