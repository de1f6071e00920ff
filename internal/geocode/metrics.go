package geocode

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names for geocoding.
const (
	MetricLookupsTotal     = "geocode_lookups_total"
	MetricCacheHitsTotal   = "geocode_cache_hits_total"
	MetricCacheMissesTotal = "geocode_cache_misses_total"
)

// Metrics counts upstream lookups and cache effectiveness. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	lookups     *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetrics creates geocoding metrics. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLookupsTotal,
				Help: "Upstream geocoding lookups by outcome",
			},
			[]string{"outcome"},
		),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHitsTotal,
			Help: "Geocoding lookups served from cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMissesTotal,
			Help: "Geocoding lookups not found in cache",
		}),
	}
}

// Collectors returns all collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.lookups, m.cacheHits, m.cacheMisses}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) observeLookup(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(TypeOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.lookups.WithLabelValues(outcome).Inc()
}
