package matching

import (
	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/ranking"
)

// ScoreResult is the compatibility of one requester/candidate pair.
// DistanceKm is set only when both coordinates are resolved.
type ScoreResult struct {
	Score      int               `json:"score"`
	DistanceKm *float64          `json:"distance_km,omitempty"`
	SubScores  ranking.SubScores `json:"sub_scores"`

	// DefaultWeights is true when the supplied weights summed to zero
	// and the default profile was used instead.
	DefaultWeights bool `json:"default_weights,omitempty"`
}

// Score computes the compatibility of a single pair. It fails only on
// invalid input; missing data is scored with fallbacks.
func Score(req Requester, cand Candidate, w ranking.MatchWeights) (ScoreResult, error) {
	if err := req.Validate(); err != nil {
		return ScoreResult{}, err
	}
	if err := cand.Validate(); err != nil {
		return ScoreResult{}, err
	}
	if err := w.Validate(); err != nil {
		return ScoreResult{}, err
	}
	return evaluate(req, cand, w).result(), nil
}

// evaluation keeps every intermediate of a score so reasons and
// feasibility factors can be derived without recomputing.
type evaluation struct {
	reqPref  collab.Preference
	candPref collab.Preference
	location ranking.LocationInput
	distance *float64
	sub      ranking.SubScores
	weights  ranking.MatchWeights // normalized
	score    int
	fallback bool
}

// evaluate assumes validated inputs.
func evaluate(req Requester, cand Candidate, w ranking.MatchWeights) evaluation {
	ev := evaluation{
		reqPref:  req.Preference.WithDefaults(),
		candPref: cand.Preference(),
	}

	ev.location = ranking.LocationInput{
		RequesterMode:          ev.reqPref.Mode,
		CandidateMode:          ev.candPref.Mode,
		RequesterMaxDistanceKm: ev.reqPref.MaxDistanceKm,
		CandidateMaxDistanceKm: ev.candPref.MaxDistanceKm,
	}
	if coord := cand.Coordinate(); req.Coordinate != nil && coord != nil {
		d := geo.DistanceKm(*req.Coordinate, *coord)
		ev.distance = &d
		ev.location.Resolved = true
		ev.location.DistanceKm = d
	}

	ev.sub = ranking.SubScores{
		Location: ranking.LocationScore(ev.location),
		Mode:     float64(ranking.ModeCompatibility(ev.reqPref.Mode, ev.candPref.Mode)),
		Meeting:  float64(ranking.MeetingCompatibility(ev.reqPref.MeetingPreference, ev.candPref.MeetingPreference)),
		TimeZone: float64(ranking.TimeZoneScore(ev.reqPref.TimeZoneFlexible, ev.candPref.TimeZoneFlexible)),
	}

	var ok bool
	ev.weights, ok = w.Normalized()
	ev.fallback = !ok
	ev.score, _ = ranking.Aggregate(ev.sub, ev.weights)
	return ev
}

func (ev evaluation) result() ScoreResult {
	return ScoreResult{
		Score:          ev.score,
		DistanceKm:     ev.distance,
		SubScores:      ev.sub,
		DefaultWeights: ev.fallback,
	}
}
