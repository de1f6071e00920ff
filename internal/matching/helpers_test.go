package matching

import (
	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
)

var beijing = geo.Coordinate{Latitude: 39.9042, Longitude: 116.4074}

func coord(lat, lon float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lon}
}

// north returns a point km kilometres due north of c.
func north(c geo.Coordinate, km float64) *geo.Coordinate {
	return coord(c.Latitude+km/111.195, c.Longitude)
}

func pref(mode collab.Mode, maxKm float64, meeting collab.MeetingPreference, tz bool) collab.Preference {
	return collab.Preference{Mode: mode, MaxDistanceKm: maxKm, MeetingPreference: meeting, TimeZoneFlexible: tz}
}

func candidateAt(id string, c *geo.Coordinate, p collab.Preference) Candidate {
	return Candidate{
		ID:    id,
		Title: "project " + id,
		Geo:   &GeoProfile{Coordinate: c, City: "Beijing", Region: "Beijing", Preference: p},
	}
}

func resultIDs(results []MatchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Candidate.ID
	}
	return ids
}

func candidateIDs(cands []Candidate) []string {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
