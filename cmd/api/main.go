// Package main is the entry point for the collaboration matching API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/collabmatch/internal/api"
	"github.com/onnwee/collabmatch/internal/auth"
	"github.com/onnwee/collabmatch/internal/config"
	"github.com/onnwee/collabmatch/internal/db"
	"github.com/onnwee/collabmatch/internal/geocode"
	"github.com/onnwee/collabmatch/internal/health"
	"github.com/onnwee/collabmatch/internal/matching"
	"github.com/onnwee/collabmatch/internal/middleware"
	"github.com/onnwee/collabmatch/internal/project"
	"github.com/onnwee/collabmatch/internal/ranking"
	"github.com/onnwee/collabmatch/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout     = 10 * time.Second
	rateLimitCleanupGap = time.Minute
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	envFile := flag.String("env-file", ".env", "path to an optional dotenv file")
	flag.Parse()

	if *help {
		fmt.Println("Collaboration Matching API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if err := run(*configPath, *envFile); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	dotenvLoaded, err := config.LoadDotEnv(envFile)
	if err != nil {
		return err
	}
	cfg, errs := config.Load(configPath)
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		"dotenv", dotenvLoaded,
		"config", cfg.LogSummary())

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       !cfg.IsProduction(),
		SamplingRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	weights, err := ranking.LoadCalibration(cfg.MatchCalibrationPath)
	if err != nil {
		logger.Warn("match calibration not applied, using default weights", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	matchMetrics := matching.NewMetrics()
	geocodeMetrics := geocode.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	for _, m := range []interface {
		Register(prometheus.Registerer) error
	}{matchMetrics, geocodeMetrics, httpMetrics} {
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	checks := map[string]health.Checker{}

	var repo project.Repository
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(context.Background(), cfg.DatabaseURL, db.DefaultPoolConfig())
		if err != nil {
			return err
		}
		defer conn.Close()
		repo = project.NewPostgresRepository(conn, logger)
		checks["postgres"] = health.NewDBChecker(conn)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory project store")
		repo = project.NewInMemoryRepository(logger)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		checks["redis"] = health.NewRedisChecker(rdb)
	}

	var geocoder geocode.Resolver
	if cfg.AMapAPIKey != "" {
		geocoder = geocode.NewAMapClient(geocode.AMapConfig{
			APIKey:  cfg.AMapAPIKey,
			BaseURL: cfg.AMapBaseURL,
			Logger:  logger,
		})
		if rdb != nil {
			geocoder = geocode.NewCachedResolver(geocoder, rdb, geocode.CacheConfig{
				TTL:     cfg.GeocodeCacheTTL,
				Logger:  logger,
				Metrics: geocodeMetrics,
			})
		}
	} else {
		logger.Warn("AMAP_API_KEY not set, addresses will not be geocoded")
	}

	var verifier middleware.TokenVerifier
	if cfg.JWTSecret != "" {
		svc, err := auth.NewService(cfg.JWTSecret)
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
		verifier = svc
	} else {
		logger.Warn("JWT_SECRET not set, recommendations are unavailable")
	}

	var limiter middleware.RateLimitStore
	if rdb != nil {
		limiter = middleware.NewRedisRateLimitStore(rdb)
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		stop := startCleanup(mem, rateLimitCleanupGap)
		defer stop()
		limiter = mem
	}

	engine := matching.NewEngine(matching.EngineConfig{
		Logger:  logger,
		Metrics: matchMetrics,
		Workers: cfg.MatchWorkers,
	})

	handler := newRouter(routerConfig{
		Logger: logger,
		Match: api.NewMatchHandlers(api.MatchHandlersConfig{
			Projects: repo,
			Engine:   engine,
			Geocoder: geocoder,
			Weights:  weights,
			Logger:   logger,
		}),
		Collab:         api.NewCollabHandlers(repo, geocoder, logger),
		Health:         api.NewHealthHandlers(checks, health.DefaultTimeout),
		Registry:       reg,
		HTTPMetrics:    httpMetrics,
		Verifier:       verifier,
		RateLimitStore: limiter,
		RateLimit:      middleware.DefaultMatchLimit(),
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// startCleanup evicts expired rate limit windows every interval until the
// returned stop function is called.
func startCleanup(store *middleware.InMemoryRateLimitStore, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				store.Cleanup()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
