package matching

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRankRequests      = "match_rank_requests_total"
	MetricCandidatesScored  = "match_candidates_scored_total"
	MetricCandidatesSkipped = "match_candidates_skipped_total"
	MetricWeightFallbacks   = "match_weight_fallbacks_total"
	MetricRankDuration      = "match_rank_duration_seconds"
	MetricResultsReturned   = "match_results_returned"
)

// Metrics contains Prometheus metrics for the matching engine.
// All operations are thread-safe.
type Metrics struct {
	rankRequests      prometheus.Counter
	candidatesScored  prometheus.Counter
	candidatesSkipped prometheus.Counter
	weightFallbacks   prometheus.Counter
	rankDuration      prometheus.Histogram
	resultsReturned   prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankRequests,
			Help: "Total number of ranking requests",
		}),
		candidatesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidatesScored,
			Help: "Total number of candidates scored",
		}),
		candidatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCandidatesSkipped,
			Help: "Total number of candidates skipped for invalid data",
		}),
		weightFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWeightFallbacks,
			Help: "Total number of requests whose weight profile fell back to defaults",
		}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of ranking duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		resultsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricResultsReturned,
			Help:    "Histogram of the number of results returned per ranking request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRankRequests increments the ranking requests counter.
func (m *Metrics) IncRankRequests() {
	m.rankRequests.Inc()
}

// AddCandidatesScored adds n to the scored candidates counter.
func (m *Metrics) AddCandidatesScored(n int) {
	m.candidatesScored.Add(float64(n))
}

// AddCandidatesSkipped adds n to the skipped candidates counter.
func (m *Metrics) AddCandidatesSkipped(n int) {
	m.candidatesSkipped.Add(float64(n))
}

// IncWeightFallbacks increments the weight fallback counter.
func (m *Metrics) IncWeightFallbacks() {
	m.weightFallbacks.Inc()
}

// ObserveRankDuration records a ranking duration sample.
func (m *Metrics) ObserveRankDuration(seconds float64) {
	m.rankDuration.Observe(seconds)
}

// ObserveResultsReturned records how many results a request returned.
func (m *Metrics) ObserveResultsReturned(n int) {
	m.resultsReturned.Observe(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankRequests,
		m.candidatesScored,
		m.candidatesSkipped,
		m.weightFallbacks,
		m.rankDuration,
		m.resultsReturned,
	}
}
