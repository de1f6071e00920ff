package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/onnwee/collabmatch/internal/ranking"
	"github.com/onnwee/collabmatch/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultLimit is used when Rank is called with a non-positive limit.
const DefaultLimit = 10

// parallelThreshold is the candidate count below which scoring stays on
// the calling goroutine.
const parallelThreshold = 64

// WarningDefaultWeights is reported when a weight profile sums to zero.
const WarningDefaultWeights = "weight profile sums to zero; default weights used"

// EngineConfig holds optional collaborators for an Engine.
type EngineConfig struct {
	Logger  *slog.Logger // nil uses slog.Default()
	Metrics *Metrics     // nil disables metrics
	Workers int          // <= 1 scores sequentially
}

// Engine ranks candidates. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	logger  *slog.Logger
	metrics *Metrics
	workers int
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger,
		metrics: cfg.Metrics,
		workers: cfg.Workers,
	}
}

// MatchResult is one ranked candidate.
type MatchResult struct {
	Candidate  Candidate         `json:"candidate"`
	Score      int               `json:"score"`
	DistanceKm *float64          `json:"distance_km,omitempty"`
	SubScores  ranking.SubScores `json:"sub_scores"`
	Reasons    []string          `json:"reasons"`
}

// SkippedCandidate is a candidate left out of ranking because its data
// was invalid.
type SkippedCandidate struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RankOutcome is the result of Rank or Search. An empty Results slice is a
// normal outcome; the counts explain where candidates dropped out.
type RankOutcome struct {
	Results       []MatchResult      `json:"results"`
	Input         int                `json:"input"`
	Stages        []StageCount       `json:"stages,omitempty"`
	Scored        int                `json:"scored"`
	BelowMinScore int                `json:"below_min_score"`
	Skipped       []SkippedCandidate `json:"skipped,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

type scored struct {
	ev      evaluation
	skipErr error
}

// Rank scores every candidate, drops those below w.MinScore, sorts by score
// (ties by ascending distance, unresolved last) and returns at most limit
// results with reasons.
//
// Invalid requester or weights fail the call. Invalid candidates are
// skipped and listed in the outcome.
func (e *Engine) Rank(ctx context.Context, req Requester, cands []Candidate, w ranking.MatchWeights, limit int) (out *RankOutcome, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "match.rank")
	defer func() { endSpan(err) }()

	start := time.Now()
	if e.metrics != nil {
		e.metrics.IncRankRequests()
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	out = &RankOutcome{Input: len(cands), Results: []MatchResult{}}
	if _, ok := w.Normalized(); !ok {
		out.Warnings = append(out.Warnings, WarningDefaultWeights)
		e.logger.Warn("match weights sum to zero, falling back to defaults",
			"requester_id", req.ID,
			"weights", w)
		if e.metrics != nil {
			e.metrics.IncWeightFallbacks()
		}
	}

	all := e.scoreAll(req, cands, w)

	kept := make([]int, 0, len(all))
	for i, s := range all {
		if s.skipErr != nil {
			out.Skipped = append(out.Skipped, SkippedCandidate{ID: cands[i].ID, Reason: s.skipErr.Error()})
			e.logger.Warn("skipping candidate with invalid data",
				"candidate_id", cands[i].ID,
				"error", s.skipErr)
			tracing.AddEvent(ctx, "candidate_skipped", attribute.String("candidate.id", cands[i].ID))
			continue
		}
		out.Scored++
		if s.ev.score < w.MinScore {
			out.BelowMinScore++
			continue
		}
		kept = append(kept, i)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return ranksBefore(all[kept[a]].ev, all[kept[b]].ev)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}

	for _, i := range kept {
		ev := all[i].ev
		out.Results = append(out.Results, MatchResult{
			Candidate:  cands[i],
			Score:      ev.score,
			DistanceKm: ev.distance,
			SubScores:  ev.sub,
			Reasons:    ev.reasons(),
		})
	}

	tracing.SetAttributes(ctx,
		attribute.Int("match.candidates", len(cands)),
		attribute.Int("match.results", len(out.Results)),
	)
	if e.metrics != nil {
		e.metrics.AddCandidatesScored(out.Scored)
		e.metrics.AddCandidatesSkipped(len(out.Skipped))
		e.metrics.ObserveResultsReturned(len(out.Results))
		e.metrics.ObserveRankDuration(time.Since(start).Seconds())
	}
	return out, nil
}

// ranksBefore orders by score descending, then by distance ascending with
// unresolved distances last.
func ranksBefore(a, b evaluation) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return distanceOrInf(a.distance) < distanceOrInf(b.distance)
}

func distanceOrInf(d *float64) float64 {
	if d == nil {
		return math.Inf(1)
	}
	return *d
}

// scoreAll evaluates every candidate, fanning out across workers for large
// inputs. Results are indexed like cands.
func (e *Engine) scoreAll(req Requester, cands []Candidate, w ranking.MatchWeights) []scored {
	out := make([]scored, len(cands))
	scoreOne := func(i int) {
		if err := cands[i].Validate(); err != nil {
			out[i] = scored{skipErr: err}
			return
		}
		out[i] = scored{ev: evaluate(req, cands[i], w)}
	}

	workers := e.workers
	if workers > len(cands) {
		workers = len(cands)
	}
	if workers <= 1 || len(cands) < parallelThreshold {
		for i := range cands {
			scoreOne(i)
		}
		return out
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scoreOne(i)
			}
		}()
	}
	for i := range cands {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// Search filters cands with params and ranks the survivors.
//
// A radius without a center is measured from the requester's coordinate.
// w.MaxDistanceKm caps the radius; with a center but no radius it becomes
// the radius.
func (e *Engine) Search(ctx context.Context, req Requester, cands []Candidate, params SearchParams, w ranking.MatchWeights, limit int) (out *RankOutcome, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "match.search")
	defer func() { endSpan(err) }()

	params = applyRadiusCap(params, req, w.MaxDistanceKm)

	filtered, err := FilterCandidates(cands, params)
	if err != nil {
		return nil, err
	}

	out, err = e.Rank(ctx, req, filtered.Candidates, w, limit)
	if err != nil {
		return nil, err
	}
	out.Input = filtered.Input
	out.Stages = filtered.Stages
	return out, nil
}

func applyRadiusCap(p SearchParams, req Requester, maxDistanceKm float64) SearchParams {
	if p.Center == nil && p.RadiusKm > 0 && req.Coordinate != nil {
		center := *req.Coordinate
		p.Center = &center
	}
	if p.Center == nil || maxDistanceKm <= 0 {
		return p
	}
	if p.RadiusKm == 0 || p.RadiusKm > maxDistanceKm {
		p.RadiusKm = maxDistanceKm
	}
	return p
}
