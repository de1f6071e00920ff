package matching

import (
	"errors"
	"strings"
	"testing"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/ranking"
)

func filterFixture() []Candidate {
	a := candidateAt("a", coord(39.92, 116.43), pref(collab.ModeLocalOnly, 0, collab.MeetingOffline, false))
	a.LocationType = collab.LocationPhysical
	a.ServiceAreaType = collab.ServiceAreaLocal

	b := candidateAt("b", nil, pref(collab.ModeRemoteFriendly, 0, collab.MeetingOnline, true))
	b.LocationType = collab.LocationRemote
	b.ServiceAreaType = collab.ServiceAreaGlobal

	c := candidateAt("c", coord(31.2304, 121.4737), pref(collab.ModeLocationFlexible, 0, collab.MeetingBoth, true))
	c.LocationType = collab.LocationHybrid
	c.ServiceAreaType = collab.ServiceAreaNational
	c.Geo.City = "Shanghai"
	c.Geo.Region = "Shanghai Municipality"

	d := Candidate{ID: "d", Title: "no geo", LocationType: collab.LocationRemote}

	return []Candidate{a, b, c, d}
}

func TestFilterCandidates(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   []string
	}{
		{"no filters", SearchParams{}, []string{"a", "b", "c", "d"}},
		{"mode all bypasses", SearchParams{Mode: ModeAll}, []string{"a", "b", "c", "d"}},
		{"mode local only", SearchParams{Mode: collab.ModeLocalOnly}, []string{"a"}},
		{"mode uses default preference", SearchParams{Mode: collab.ModeLocationFlexible}, []string{"c", "d"}},
		{"location type", SearchParams{LocationType: collab.LocationRemote}, []string{"b", "d"}},
		{"meeting accepts both", SearchParams{Meeting: collab.MeetingOnline}, []string{"b", "c", "d"}},
		{"service area", SearchParams{ServiceAreaType: collab.ServiceAreaNational}, []string{"c"}},
		{"radius drops unresolved", SearchParams{Center: &beijing, RadiusKm: 10}, []string{"a"}},
		{"large radius", SearchParams{Center: &beijing, RadiusKm: 1500}, []string{"a", "c"}},
		{
			"bounds",
			SearchParams{Bounds: &geo.Bounds{
				Northeast: geo.Coordinate{Latitude: 41, Longitude: 118},
				Southwest: geo.Coordinate{Latitude: 39, Longitude: 115},
			}},
			[]string{"a"},
		},
		{"city substring ignores case", SearchParams{City: "shang"}, []string{"c"}},
		{"region substring", SearchParams{Region: "Municipality"}, []string{"c"}},
		{"combined", SearchParams{Mode: ModeAll, Meeting: collab.MeetingOnline, LocationType: collab.LocationRemote}, []string{"b", "d"}},
		{"text matcher", SearchParams{Text: func(c Candidate) bool { return strings.Contains(c.Title, "geo") }}, []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FilterCandidates(filterFixture(), tt.params)
			if err != nil {
				t.Fatalf("FilterCandidates() error = %v", err)
			}
			if got := candidateIDs(out.Candidates); !equalStrings(got, tt.want) {
				t.Errorf("FilterCandidates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterCandidates_RadiusWithAndWithoutCoordinate(t *testing.T) {
	cands := []Candidate{candidateAt("nocoord", nil, pref(collab.ModeLocalOnly, 0, "", false))}

	out, err := FilterCandidates(cands, SearchParams{Center: &beijing, RadiusKm: 10})
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	if len(out.Candidates) != 0 {
		t.Errorf("expected candidate without coordinate dropped under radius filter")
	}

	out, err = FilterCandidates(cands, SearchParams{})
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}
	if len(out.Candidates) != 1 {
		t.Fatalf("expected candidate retained without radius filter")
	}

	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocalOnly, 50, "", false)}
	got := evaluate(req, out.Candidates[0], ranking.DefaultWeights())
	if got.sub.Location != 40 {
		t.Errorf("location sub-score = %v, want degraded 40", got.sub.Location)
	}
}

func TestFilterCandidates_StageCounts(t *testing.T) {
	out, err := FilterCandidates(filterFixture(), SearchParams{
		Mode:     ModeAll,
		Meeting:  collab.MeetingOnline,
		Center:   &beijing,
		RadiusKm: 1500,
	})
	if err != nil {
		t.Fatalf("FilterCandidates() error = %v", err)
	}

	want := []StageCount{
		{Stage: StageMeeting, Remaining: 3},
		{Stage: StageRadius, Remaining: 1},
	}
	if out.Input != 4 {
		t.Errorf("Input = %d, want 4", out.Input)
	}
	if len(out.Stages) != len(want) {
		t.Fatalf("Stages = %+v, want %+v", out.Stages, want)
	}
	for i := range want {
		if out.Stages[i] != want[i] {
			t.Errorf("Stages[%d] = %+v, want %+v", i, out.Stages[i], want[i])
		}
	}
}

func TestFilterCandidates_Conservation(t *testing.T) {
	input := filterFixture()
	before := candidateIDs(input)

	params := []SearchParams{
		{},
		{Meeting: collab.MeetingOffline},
		{Center: &beijing, RadiusKm: 2000},
		{City: "bei"},
		{LocationType: collab.LocationHybrid, ServiceAreaType: collab.ServiceAreaNational},
	}
	for _, p := range params {
		out, err := FilterCandidates(input, p)
		if err != nil {
			t.Fatalf("FilterCandidates() error = %v", err)
		}

		// every survivor exists in the input, in input order
		j := 0
		for _, c := range out.Candidates {
			for j < len(input) && input[j].ID != c.ID {
				j++
			}
			if j == len(input) {
				t.Fatalf("candidate %s missing from input or reordered", c.ID)
			}
			j++
		}
	}

	if got := candidateIDs(input); !equalStrings(got, before) {
		t.Errorf("input modified: %v, want %v", got, before)
	}
}

func TestFilterCandidates_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
	}{
		{"unknown mode", SearchParams{Mode: "sometimes"}},
		{"unknown location type", SearchParams{LocationType: "orbit"}},
		{"unknown meeting", SearchParams{Meeting: "telepathy"}},
		{"unknown service area", SearchParams{ServiceAreaType: "galactic"}},
		{"negative radius", SearchParams{Center: &beijing, RadiusKm: -1}},
		{"radius without center", SearchParams{RadiusKm: 5}},
		{"center out of range", SearchParams{Center: coord(95, 0), RadiusKm: 5}},
		{"inverted bounds", SearchParams{Bounds: &geo.Bounds{
			Northeast: geo.Coordinate{Latitude: 10, Longitude: 10},
			Southwest: geo.Coordinate{Latitude: 20, Longitude: 0},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FilterCandidates(filterFixture(), tt.params)
			if !errors.Is(err, ErrInvalidSearchParams) {
				t.Errorf("FilterCandidates() error = %v, want ErrInvalidSearchParams", err)
			}
		})
	}
}
