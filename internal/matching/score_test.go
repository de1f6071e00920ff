package matching

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/ranking"
)

func TestScore_NearbyLocalPair(t *testing.T) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocalOnly, 50, "", false)}
	cand := candidateAt("near", coord(39.92, 116.43), pref(collab.ModeLocalOnly, 50, "", false))

	got, err := Score(req, cand, ranking.DefaultWeights())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if got.SubScores.Mode != 100 {
		t.Errorf("mode sub-score = %v, want 100", got.SubScores.Mode)
	}
	if got.SubScores.Location < 97 || got.SubScores.Location > 100 {
		t.Errorf("location sub-score = %v, want 97-100", got.SubScores.Location)
	}
	if got.Score < 90 {
		t.Errorf("score = %d, want >= 90", got.Score)
	}
	if got.DistanceKm == nil || *got.DistanceKm < 2 || *got.DistanceKm > 3 {
		t.Errorf("distance = %v, want about 2.6 km", got.DistanceKm)
	}

	ev := evaluate(req, cand, ranking.DefaultWeights())
	reasons := ev.reasons()
	if len(reasons) == 0 || !strings.HasPrefix(reasons[0], "distance ") {
		t.Errorf("reasons = %v, want distance reason first", reasons)
	}
}

func TestScore_FarRemoteCandidateExcluded(t *testing.T) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocalOnly, 50, collab.MeetingOffline, false)}
	cand := candidateAt("far", north(beijing, 500), pref(collab.ModeRemoteFriendly, 50, collab.MeetingOnline, false))

	w := ranking.DefaultWeights()
	got, err := Score(req, cand, w)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got.SubScores.Mode != 30 {
		t.Errorf("mode sub-score = %v, want 30", got.SubScores.Mode)
	}
	if got.SubScores.Location != 40 {
		t.Errorf("location sub-score = %v, want 40", got.SubScores.Location)
	}
	if got.Score != 36 {
		t.Errorf("score = %d, want 36", got.Score)
	}

	w.MinScore = 50
	out, err := NewEngine(EngineConfig{}).Rank(t.Context(), req, []Candidate{cand}, w, 10)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(out.Results) != 0 {
		t.Errorf("expected candidate excluded, got %v", resultIDs(out.Results))
	}
	if out.BelowMinScore != 1 {
		t.Errorf("BelowMinScore = %d, want 1", out.BelowMinScore)
	}
}

func TestScore_MissingCoordinateRemotePair(t *testing.T) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeRemoteFriendly, 0, "", false)}
	cand := candidateAt("remote", nil, pref(collab.ModeRemoteFriendly, 0, "", false))

	got, err := Score(req, cand, ranking.DefaultWeights())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got.SubScores.Location != 80 {
		t.Errorf("location sub-score = %v, want 80", got.SubScores.Location)
	}
	if got.DistanceKm != nil {
		t.Errorf("distance = %v, want nil without both coordinates", *got.DistanceKm)
	}

	report, err := NewEngine(EngineConfig{}).Analyze(t.Context(), req, cand, ranking.DefaultWeights())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !report.Feasible {
		t.Errorf("expected feasible, score = %d", report.Score)
	}
}

func TestScore_ZeroWeightsFallBack(t *testing.T) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocalOnly, 50, "", true)}
	cand := candidateAt("c", coord(39.92, 116.43), pref(collab.ModeLocalOnly, 50, "", true))

	got, err := Score(req, cand, ranking.MatchWeights{})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !got.DefaultWeights {
		t.Error("expected DefaultWeights to be reported")
	}
	want, _ := Score(req, cand, ranking.DefaultWeights())
	if got.Score != want.Score {
		t.Errorf("score = %d, want %d (default weights)", got.Score, want.Score)
	}
}

func TestScore_MissingProfileUsesDefaults(t *testing.T) {
	req := Requester{Preference: pref(collab.ModeLocalOnly, 50, collab.MeetingOnline, false)}
	cand := Candidate{ID: "bare"}

	got, err := Score(req, cand, ranking.DefaultWeights())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// local_only vs location_flexible default
	if got.SubScores.Mode != 70 {
		t.Errorf("mode sub-score = %v, want 70", got.SubScores.Mode)
	}
	if got.SubScores.Meeting != 80 {
		t.Errorf("meeting sub-score = %v, want 80", got.SubScores.Meeting)
	}
	if got.SubScores.TimeZone != 70 {
		t.Errorf("time-zone sub-score = %v, want 70", got.SubScores.TimeZone)
	}
}

func TestScore_InvalidInput(t *testing.T) {
	valid := Requester{Coordinate: &beijing}
	tests := []struct {
		name    string
		req     Requester
		cand    Candidate
		w       ranking.MatchWeights
		wantErr error
	}{
		{
			name:    "requester latitude out of range",
			req:     Requester{Coordinate: coord(91, 0)},
			cand:    Candidate{ID: "c"},
			w:       ranking.DefaultWeights(),
			wantErr: geo.ErrInvalidLatitude,
		},
		{
			name:    "candidate longitude out of range",
			req:     valid,
			cand:    candidateAt("c", coord(0, 181), collab.Preference{}),
			w:       ranking.DefaultWeights(),
			wantErr: geo.ErrInvalidLongitude,
		},
		{
			name:    "unknown requester mode",
			req:     Requester{Preference: collab.Preference{Mode: "sometimes"}},
			cand:    Candidate{ID: "c"},
			w:       ranking.DefaultWeights(),
			wantErr: collab.ErrInvalidMode,
		},
		{
			name:    "unknown candidate meeting preference",
			req:     valid,
			cand:    candidateAt("c", nil, collab.Preference{MeetingPreference: "carrier-pigeon"}),
			w:       ranking.DefaultWeights(),
			wantErr: collab.ErrInvalidMeetingPreference,
		},
		{
			name:    "negative candidate distance",
			req:     valid,
			cand:    candidateAt("c", nil, collab.Preference{MaxDistanceKm: -5}),
			w:       ranking.DefaultWeights(),
			wantErr: collab.ErrNegativeDistance,
		},
		{
			name:    "negative weight",
			req:     valid,
			cand:    Candidate{ID: "c"},
			w:       ranking.MatchWeights{LocationWeight: -1, ModeWeight: 1},
			wantErr: ranking.ErrNegativeWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.req, tt.cand, tt.w)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Score() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	meetings := []collab.MeetingPreference{collab.MeetingOnline, collab.MeetingOffline, collab.MeetingBoth}
	distances := []float64{0, 1, 49, 50, 51, 150, 5000}
	weights := []ranking.MatchWeights{
		ranking.DefaultWeights(),
		{},
		{LocationWeight: 10, ModeWeight: 0, MeetingWeight: 3, TimeZoneWeight: 0.5},
		{TimeZoneWeight: 1},
	}

	for _, rm := range collab.Modes {
		for _, cm := range collab.Modes {
			for _, meet := range meetings {
				for _, d := range distances {
					for _, w := range weights {
						req := Requester{Coordinate: &beijing, Preference: pref(rm, 50, meet, d > 100)}
						cand := candidateAt("c", north(beijing, d), pref(cm, 20, collab.MeetingOnline, false))
						got, err := Score(req, cand, w)
						if err != nil {
							t.Fatalf("Score() error = %v", err)
						}
						if got.Score < 0 || got.Score > 100 {
							t.Fatalf("score %d out of bounds for %s/%s/%s at %v km", got.Score, rm, cm, meet, d)
						}
					}
				}
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocationFlexible, 30, collab.MeetingBoth, true)}
	cand := candidateAt("c", coord(31.2304, 121.4737), pref(collab.ModeRemoteFriendly, 0, collab.MeetingOnline, true))

	first, err := Score(req, cand, ranking.DefaultWeights())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for range 5 {
		again, _ := Score(req, cand, ranking.DefaultWeights())
		if again.Score != first.Score || math.Abs(*again.DistanceKm-*first.DistanceKm) > 1e-9 {
			t.Fatalf("Score() not deterministic: %+v vs %+v", again, first)
		}
	}
}
