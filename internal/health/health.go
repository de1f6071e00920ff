// Package health runs dependency checks for the readiness endpoint.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck implements Checker.
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// DefaultTimeout bounds each check.
const DefaultTimeout = 2 * time.Second

// Status values.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Result is the outcome of one named check.
type Result struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report aggregates all checks.
type Report struct {
	Healthy bool     `json:"healthy"`
	Checks  []Result `json:"checks"`
}

// Run executes checks concurrently, each bounded by timeout, and returns
// results sorted by name.
func Run(ctx context.Context, checks map[string]Checker, timeout time.Duration) Report {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]Result, 0, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := c.HealthCheck(cctx)
			r := Result{Name: name, Status: StatusUp, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				r.Status = StatusDown
				r.Error = err.Error()
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	rep := Report{Healthy: true, Checks: results}
	for _, r := range results {
		if r.Status != StatusUp {
			rep.Healthy = false
		}
	}
	return rep
}
