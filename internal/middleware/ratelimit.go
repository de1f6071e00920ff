package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig is a fixed-window limit.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Validate checks both fields are positive.
func (c RateLimitConfig) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be > 0 (got %d)", c.RequestsPerWindow)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("WindowDuration must be > 0 (got %s)", c.WindowDuration)
	}
	return nil
}

// DefaultMatchLimit bounds the ranking endpoints, which score every
// candidate per call.
func DefaultMatchLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitStore tracks request counts per key.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, cfg RateLimitConfig) (Decision, error)
}

type window struct {
	count int
	ends  time.Time
}

// InMemoryRateLimitStore is a single-process fixed-window counter.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewInMemoryRateLimitStore creates an empty store.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{windows: make(map[string]*window), now: time.Now}
}

// Allow implements RateLimitStore.
func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(cfg.WindowDuration)}
		s.windows[key] = w
	}
	if w.count >= cfg.RequestsPerWindow {
		return Decision{Allowed: false, RetryAfter: w.ends.Sub(now)}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: cfg.RequestsPerWindow - w.count}, nil
}

// Cleanup drops expired windows.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, w := range s.windows {
		if !now.Before(w.ends) {
			delete(s.windows, k)
		}
	}
}

const rateLimitKeyPrefix = "ratelimit:"

// RedisRateLimitStore shares fixed-window counters across instances.
type RedisRateLimitStore struct {
	rdb redis.Cmdable
}

// NewRedisRateLimitStore creates a store backed by rdb.
func NewRedisRateLimitStore(rdb redis.Cmdable) *RedisRateLimitStore {
	return &RedisRateLimitStore{rdb: rdb}
}

// Allow implements RateLimitStore. The window starts at the first request
// for a key and expires with the key.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	k := rateLimitKeyPrefix + key

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	retry := ttl.Val()
	// A negative TTL means the key was just created or lost its expiry.
	if retry < 0 {
		if err := s.rdb.PExpire(ctx, k, cfg.WindowDuration).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
		}
		retry = cfg.WindowDuration
	}

	count := int(incr.Val())
	if count > cfg.RequestsPerWindow {
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: cfg.RequestsPerWindow - count}, nil
}

// KeyFunc derives the rate limit key and its type label from a request.
type KeyFunc func(r *http.Request) (key, keyType string)

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserOrIPKey keys authenticated requests by user and others by client IP.
func UserOrIPKey(r *http.Request) (string, string) {
	if id := GetUserID(r.Context()); id != "" {
		return "user:" + id, "user"
	}
	return "ip:" + ClientIP(r), "ip"
}

// RateLimiter rejects requests over cfg with 429. Store failures let the
// request through and are logged and counted.
func RateLimiter(store RateLimitStore, cfg RateLimitConfig, keyFn KeyFunc, m *Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, keyType := keyFn(r)
			d, err := store.Allow(r.Context(), key, cfg)
			if err != nil {
				m.incStoreErrors()
				logger.Warn("rate limit store unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			m.observeRateLimit(keyType, d.Allowed)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int((d.RetryAfter + time.Second - 1) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				SetErrorCode(r.Context(), "rate_limited")
				writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
