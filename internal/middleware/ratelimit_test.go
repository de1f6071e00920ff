package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		cfg     RateLimitConfig
		wantErr bool
	}{
		{DefaultMatchLimit(), false},
		{RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Second}, true},
		{RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 0}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestInMemoryRateLimitStore(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewInMemoryRateLimitStore()
	s.now = func() time.Time { return now }
	cfg := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, _ := s.Allow(ctx, "k", cfg)
		if !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("request %d: %+v", i+1, d)
		}
	}
	now = now.Add(20 * time.Second)
	d, _ := s.Allow(ctx, "k", cfg)
	if d.Allowed || d.RetryAfter != 40*time.Second {
		t.Errorf("4th request = %+v, want blocked with 40s retry", d)
	}
	if d, _ := s.Allow(ctx, "other", cfg); !d.Allowed {
		t.Error("keys must be independent")
	}

	now = now.Add(time.Minute)
	s.Cleanup()
	if len(s.windows) != 0 {
		t.Errorf("Cleanup() left %d windows", len(s.windows))
	}
	if d, _ := s.Allow(ctx, "k", cfg); !d.Allowed {
		t.Error("new window should allow")
	}
}

func TestRedisRateLimitStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisRateLimitStore(rdb)
	cfg := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := s.Allow(ctx, "ip:1.2.3.4", cfg)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: %+v, %v", i+1, d, err)
		}
	}
	if ttl := mr.TTL(rateLimitKeyPrefix + "ip:1.2.3.4"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	d, err := s.Allow(ctx, "ip:1.2.3.4", cfg)
	if err != nil || d.Allowed {
		t.Fatalf("3rd request: %+v, %v", d, err)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v", d.RetryAfter)
	}

	mr.FastForward(time.Minute + time.Second)
	if d, _ := s.Allow(ctx, "ip:1.2.3.4", cfg); !d.Allowed {
		t.Error("window should reset after expiry")
	}

	mr.Close()
	if _, err := s.Allow(ctx, "ip:1.2.3.4", cfg); err == nil {
		t.Error("Allow() with Redis down should fail")
	}
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, RateLimitConfig) (Decision, error) {
	return Decision{}, context.DeadlineExceeded
}

func TestRateLimiter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimiter(NewInMemoryRateLimitStore(), cfg, UserOrIPKey, m, nil)(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/rank", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	if first.Code != http.StatusOK || first.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first: code %d remaining %q", first.Code, first.Header().Get("X-RateLimit-Remaining"))
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second: code %d, want 429", second.Code)
	}
	if ra, _ := strconv.Atoi(second.Header().Get("Retry-After")); ra < 1 || ra > 60 {
		t.Errorf("Retry-After = %q", second.Header().Get("Retry-After"))
	}
	if got := counterFor(t, reg, MetricRateLimitBlocked, map[string]string{"key_type": "ip"}); got != 1 {
		t.Errorf("blocked = %v, want 1", got)
	}

	failOpen := RateLimiter(failingStore{}, cfg, UserOrIPKey, m, nil)(ok)
	rr := httptest.NewRecorder()
	failOpen.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("store failure: code %d, want request allowed", rr.Code)
	}
	if got := counterFor(t, reg, MetricRateLimitStoreErrors, nil); got != 1 {
		t.Errorf("store errors = %v, want 1", got)
	}
}

func TestClientIPAndKeys(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		user    string
		wantKey string
		wantTyp string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, "9.9.9.9:1", "", "ip:1.1.1.1", "ip"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "", "ip:3.3.3.3", "ip"},
		{"remote addr", nil, "[::1]:8080", "", "ip:::1", "ip"},
		{"remote without port", nil, "4.4.4.4", "", "ip:4.4.4.4", "ip"},
		{"user wins", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "u-1", "user:u-1", "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.user != "" {
				req = req.WithContext(SetUserID(req.Context(), tt.user))
			}
			key, typ := UserOrIPKey(req)
			if key != tt.wantKey || typ != tt.wantTyp {
				t.Errorf("UserOrIPKey() = %q, %q; want %q, %q", key, typ, tt.wantKey, tt.wantTyp)
			}
		})
	}
}
