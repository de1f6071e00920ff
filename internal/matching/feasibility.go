package matching

import (
	"context"
	"fmt"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/ranking"
	"github.com/onnwee/collabmatch/internal/tracing"
)

// Impact classifies how a factor affects feasibility.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Factor labels.
const (
	FactorLocation = "location"
	FactorDistance = "distance"
	FactorMode     = "mode"
	FactorMeeting  = "meeting"
	FactorTimeZone = "time_zone"
)

// Suggestions attached to negative factors.
const (
	SuggestRemote          = "consider proposing remote collaboration"
	SuggestConfirmLocation = "ask the counterpart to confirm a location"
	SuggestSetLocation     = "set your own location to get distance-based matching"
	SuggestModeFlexibility = "communicate how flexible you are on the collaboration mode"
	SuggestMeetingPlan     = "agree on a mix of online and offline meetings"
	SuggestOverlapHours    = "agree on overlapping working hours"
)

// modeCompatibleAbove is the mode sub-score above which modes count as compatible.
const modeCompatibleAbove = 60

// Factor is one component of a feasibility report. Weight is the
// normalized weight of the underlying sub-score.
type Factor struct {
	Label  string  `json:"label"`
	Impact Impact  `json:"impact"`
	Detail string  `json:"detail"`
	Weight float64 `json:"weight"`
}

// FeasibilityReport explains whether one pair could realistically work together.
type FeasibilityReport struct {
	Feasible    bool              `json:"feasible"`
	Score       int               `json:"score"`
	DistanceKm  *float64          `json:"distance_km,omitempty"`
	SubScores   ranking.SubScores `json:"sub_scores"`
	Factors     []Factor          `json:"factors"`
	Suggestions []string          `json:"suggestions"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Analyze scores a single pair and decomposes the score into factors.
// Feasible is Score >= w.MinScore.
func (e *Engine) Analyze(ctx context.Context, req Requester, cand Candidate, w ranking.MatchWeights) (report *FeasibilityReport, err error) {
	_, endSpan := tracing.StartSpan(ctx, "match.analyze")
	defer func() { endSpan(err) }()

	if _, err := Score(req, cand, w); err != nil {
		return nil, err
	}
	ev := evaluate(req, cand, w)

	report = &FeasibilityReport{
		Feasible:    ev.score >= w.MinScore,
		Score:       ev.score,
		DistanceKm:  ev.distance,
		SubScores:   ev.sub,
		Suggestions: []string{},
	}
	if ev.fallback {
		report.Warnings = append(report.Warnings, WarningDefaultWeights)
		e.logger.Warn("match weights sum to zero, falling back to defaults",
			"requester_id", req.ID,
			"candidate_id", cand.ID)
		if e.metrics != nil {
			e.metrics.IncWeightFallbacks()
		}
	}

	add := func(f Factor, suggestion string) {
		report.Factors = append(report.Factors, f)
		if f.Impact == ImpactNegative && suggestion != "" {
			report.Suggestions = append(report.Suggestions, suggestion)
		}
	}

	add(ev.locationFactor(req, cand))
	add(ev.modeFactor())
	add(ev.meetingFactor())
	add(ev.timeZoneFactor())

	return report, nil
}

func (ev evaluation) locationFactor(req Requester, cand Candidate) (Factor, string) {
	f := Factor{Label: FactorLocation, Weight: ev.weights.LocationWeight}

	if ev.distance == nil {
		f.Impact = ImpactNegative
		if ev.sub.Location >= 80 {
			f.Impact = ImpactNeutral
		}
		if req.Coordinate == nil {
			f.Detail = "your location is not set"
			if f.Impact == ImpactNeutral {
				f.Detail += "; remote collaboration keeps this neutral"
			}
			return f, SuggestSetLocation
		}
		f.Detail = "the counterpart has not shared a location"
		if f.Impact == ImpactNeutral {
			f.Detail += "; remote collaboration keeps this neutral"
		}
		return f, SuggestConfirmLocation
	}

	d, limit := *ev.distance, ev.reqPref.MaxDistanceKm
	f.Label = FactorDistance
	if d <= limit {
		f.Impact = ImpactPositive
		f.Detail = fmt.Sprintf("distance %.1f km is within your %.0f km preference", d, limit)
		return f, ""
	}

	f.Impact = ImpactNegative
	f.Detail = fmt.Sprintf("distance %.1f km exceeds your %.0f km preference", d, limit)
	if ev.candPref.Mode != collab.ModeRemoteFriendly {
		return f, SuggestRemote
	}
	return f, ""
}

func (ev evaluation) modeFactor() (Factor, string) {
	f := Factor{Label: FactorMode, Weight: ev.weights.ModeWeight}
	pair := fmt.Sprintf("%s / %s", ev.reqPref.Mode, ev.candPref.Mode)
	if ev.sub.Mode > modeCompatibleAbove {
		f.Impact = ImpactPositive
		f.Detail = "collaboration modes are compatible (" + pair + ")"
		return f, ""
	}
	f.Impact = ImpactNegative
	f.Detail = "collaboration modes conflict (" + pair + ")"
	return f, SuggestModeFlexibility
}

func (ev evaluation) meetingFactor() (Factor, string) {
	f := Factor{Label: FactorMeeting, Weight: ev.weights.MeetingWeight}
	switch {
	case ev.sub.Meeting >= 100:
		f.Impact = ImpactPositive
		f.Detail = fmt.Sprintf("both parties prefer %s meetings", ev.reqPref.MeetingPreference)
		if ev.reqPref.MeetingPreference == collab.MeetingBoth {
			f.Detail = "both parties accept online and offline meetings"
		}
		return f, ""
	case ev.sub.Meeting >= 80:
		f.Impact = ImpactNeutral
		f.Detail = "one party accepts both online and offline meetings"
		return f, ""
	default:
		f.Impact = ImpactNegative
		f.Detail = fmt.Sprintf("meeting preferences conflict (%s / %s)",
			ev.reqPref.MeetingPreference, ev.candPref.MeetingPreference)
		return f, SuggestMeetingPlan
	}
}

func (ev evaluation) timeZoneFactor() (Factor, string) {
	f := Factor{Label: FactorTimeZone, Weight: ev.weights.TimeZoneWeight}
	switch {
	case ev.sub.TimeZone >= 100:
		f.Impact = ImpactPositive
		f.Detail = ReasonTimeZoneFlexible
		return f, ""
	case ev.sub.TimeZone >= 70:
		f.Impact = ImpactNeutral
		f.Detail = "only one party accepts cross-time-zone work"
		return f, ""
	default:
		f.Impact = ImpactNegative
		f.Detail = "neither party accepts cross-time-zone work"
		return f, SuggestOverlapHours
	}
}
