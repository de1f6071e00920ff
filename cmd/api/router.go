package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/collabmatch/internal/api"
	"github.com/onnwee/collabmatch/internal/middleware"
)

const serviceName = "collabmatch-api"

// Routes served by the API. Metrics are labelled by these paths.
const (
	routeHealth          = "/health"
	routeReady           = "/ready"
	routeMetrics         = "/metrics"
	routeFilter          = "/api/v1/match/filter"
	routeRank            = "/api/v1/match/rank"
	routeFeasibility     = "/api/v1/match/feasibility"
	routeRecommendations = "/api/v1/match/recommendations"
	routeStats           = "/api/v1/match/stats"
	routeProfile         = "/api/v1/match/profile"
	routeValidate        = "/api/v1/collab/validate"
	routeProjects        = "/api/v1/projects"
)

var metricRoutes = []string{
	routeHealth, routeReady,
	routeFilter, routeRank, routeFeasibility, routeRecommendations, routeStats,
	routeProfile, routeValidate, routeProjects,
}

// routerConfig holds everything newRouter wires together.
type routerConfig struct {
	Logger      *slog.Logger
	Match       *api.MatchHandlers
	Collab      *api.CollabHandlers
	Health      *api.HealthHandlers
	Registry    *prometheus.Registry
	HTTPMetrics *middleware.Metrics

	// Verifier guards the per-user routes. Nil leaves them reachable only
	// by requests that already carry a user, which none do.
	Verifier middleware.TokenVerifier

	RateLimitStore middleware.RateLimitStore // nil disables rate limiting
	RateLimit      middleware.RateLimitConfig
}

// newRouter builds the handler chain:
// RequestID -> Logging -> Tracing -> HTTPMetrics -> mux, with rate limiting
// (and authentication for per-user routes) on the API routes.
func newRouter(cfg routerConfig) http.Handler {
	limit := func(h http.Handler) http.Handler {
		if cfg.RateLimitStore == nil {
			return h
		}
		return middleware.RateLimiter(cfg.RateLimitStore, cfg.RateLimit, middleware.UserOrIPKey, cfg.HTTPMetrics, cfg.Logger)(h)
	}
	authed := func(h http.Handler) http.Handler {
		if cfg.Verifier == nil {
			return h
		}
		return middleware.RequireAuth(cfg.Verifier)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(routeHealth, cfg.Health.Health)
	mux.HandleFunc(routeReady, cfg.Health.Ready)
	mux.Handle(routeMetrics, promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	mux.Handle(routeFilter, limit(http.HandlerFunc(cfg.Match.Filter)))
	mux.Handle(routeRank, limit(http.HandlerFunc(cfg.Match.Rank)))
	mux.Handle(routeFeasibility, limit(http.HandlerFunc(cfg.Match.Feasibility)))
	mux.Handle(routeStats, limit(http.HandlerFunc(cfg.Match.Stats)))
	mux.Handle(routeRecommendations, authed(limit(http.HandlerFunc(cfg.Match.Recommendations))))

	mux.Handle(routeValidate, limit(http.HandlerFunc(cfg.Collab.ValidateSettings)))
	mux.Handle(routeProfile, authed(limit(http.HandlerFunc(cfg.Collab.SaveProfile))))
	mux.Handle(routeProjects, authed(limit(http.HandlerFunc(cfg.Collab.CreateProject))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, r, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
	})

	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(cfg.HTTPMetrics, metricRoutes, routeMetrics)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.Logging(cfg.Logger)(handler)
	return middleware.RequestID(handler)
}
