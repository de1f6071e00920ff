package ranking

import (
	"errors"
	"fmt"
	"math"
)

// Weight profile validation errors.
var (
	ErrNegativeWeight   = errors.New("weights must be non-negative")
	ErrNonFiniteWeight  = errors.New("weights must be finite numbers")
	ErrNegativeDistance = errors.New("max distance must be non-negative")
	ErrInvalidMinScore  = errors.New("min score must be between 0 and 100")
)

// MatchWeights is the weight and threshold profile used to score candidates.
//
// The four weights are fractions that should sum to 1; they are normalized
// by their actual sum at scoring time. MaxDistanceKm is the hard radius cap
// for the search pipeline and MinScore is the floor below which a candidate
// is dropped from ranked results.
type MatchWeights struct {
	LocationWeight float64 `json:"location_weight"`  // default: 0.4
	ModeWeight     float64 `json:"mode_weight"`      // default: 0.3
	MeetingWeight  float64 `json:"meeting_weight"`   // default: 0.2
	TimeZoneWeight float64 `json:"time_zone_weight"` // default: 0.1
	MaxDistanceKm  float64 `json:"max_distance_km"`  // default: 100
	MinScore       int     `json:"min_score"`        // default: 30
}

// DefaultWeights returns the profile shipped with the engine.
//
// Formula: score = location*0.4 + mode*0.3 + meeting*0.2 + timezone*0.1
// - Location dominates because most collaborations start in person
// - Mode compatibility decides whether distance matters at all
// - Meeting format and time-zone flexibility refine the ordering
func DefaultWeights() MatchWeights {
	return MatchWeights{
		LocationWeight: 0.4,
		ModeWeight:     0.3,
		MeetingWeight:  0.2,
		TimeZoneWeight: 0.1,
		MaxDistanceKm:  100,
		MinScore:       30,
	}
}

// Validate rejects negative or non-finite values and out-of-range thresholds.
// A profile whose weights are all zero is valid; Normalized handles it.
func (w MatchWeights) Validate() error {
	for _, v := range []float64{w.LocationWeight, w.ModeWeight, w.MeetingWeight, w.TimeZoneWeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w (got %v)", ErrNonFiniteWeight, v)
		}
		if v < 0 {
			return fmt.Errorf("%w (got %v)", ErrNegativeWeight, v)
		}
	}
	if math.IsNaN(w.MaxDistanceKm) || w.MaxDistanceKm < 0 {
		return fmt.Errorf("%w (got %v)", ErrNegativeDistance, w.MaxDistanceKm)
	}
	if w.MinScore < 0 || w.MinScore > 100 {
		return fmt.Errorf("%w (got %d)", ErrInvalidMinScore, w.MinScore)
	}
	return nil
}

func (w MatchWeights) sum() float64 {
	return w.LocationWeight + w.ModeWeight + w.MeetingWeight + w.TimeZoneWeight
}

// Normalized returns a copy whose four weights sum to 1.
//
// When the weights sum to zero or less, the default weights are used instead
// and ok is false so the caller can surface a warning. Thresholds are kept.
func (w MatchWeights) Normalized() (normalized MatchWeights, ok bool) {
	total := w.sum()
	if !(total > 0) || math.IsInf(total, 0) {
		d := DefaultWeights()
		w.LocationWeight, w.ModeWeight, w.MeetingWeight, w.TimeZoneWeight =
			d.LocationWeight, d.ModeWeight, d.MeetingWeight, d.TimeZoneWeight
		total = w.sum()
		ok = false
	} else {
		ok = true
	}

	w.LocationWeight /= total
	w.ModeWeight /= total
	w.MeetingWeight /= total
	w.TimeZoneWeight /= total
	return w, ok
}

// Override carries per-request changes to a profile. Nil fields keep the
// base value, so an explicit zero can be expressed.
type Override struct {
	LocationWeight *float64 `json:"location_weight,omitempty"`
	ModeWeight     *float64 `json:"mode_weight,omitempty"`
	MeetingWeight  *float64 `json:"meeting_weight,omitempty"`
	TimeZoneWeight *float64 `json:"time_zone_weight,omitempty"`
	MaxDistanceKm  *float64 `json:"max_distance_km,omitempty"`
	MinScore       *int     `json:"min_score,omitempty"`
}

// Apply returns w with every non-nil field of o applied.
func (w MatchWeights) Apply(o Override) MatchWeights {
	if o.LocationWeight != nil {
		w.LocationWeight = *o.LocationWeight
	}
	if o.ModeWeight != nil {
		w.ModeWeight = *o.ModeWeight
	}
	if o.MeetingWeight != nil {
		w.MeetingWeight = *o.MeetingWeight
	}
	if o.TimeZoneWeight != nil {
		w.TimeZoneWeight = *o.TimeZoneWeight
	}
	if o.MaxDistanceKm != nil {
		w.MaxDistanceKm = *o.MaxDistanceKm
	}
	if o.MinScore != nil {
		w.MinScore = *o.MinScore
	}
	return w
}

// SubScores are the four components of a compatibility score, each in [0, 100].
type SubScores struct {
	Location float64 `json:"location"`
	Mode     float64 `json:"mode"`
	Meeting  float64 `json:"meeting"`
	TimeZone float64 `json:"time_zone"`
}

// Aggregate folds sub-scores into one integer score in [0, 100] using the
// normalized weights. ok is false when the default weights had to be used.
func Aggregate(sub SubScores, w MatchWeights) (score int, ok bool) {
	n, ok := w.Normalized()
	total := sub.Location*n.LocationWeight +
		sub.Mode*n.ModeWeight +
		sub.Meeting*n.MeetingWeight +
		sub.TimeZone*n.TimeZoneWeight
	return clampScore(int(math.Round(total))), ok
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
