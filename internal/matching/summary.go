package matching

import (
	"fmt"
	"math"
)

// NearbyRadiusKm is the distance under which a match counts as nearby.
const NearbyRadiusKm = 10.0

// Summary describes a ranked result set in a few lines.
type Summary struct {
	Count        int      `json:"count"`
	AverageScore int      `json:"average_score"`
	Nearby       int      `json:"nearby"`
	Lines        []string `json:"lines"`
}

// Summarize counts the results, averages their scores and counts how many
// lie within NearbyRadiusKm.
func Summarize(results []MatchResult) Summary {
	if len(results) == 0 {
		return Summary{Lines: []string{"no matching projects"}}
	}

	s := Summary{Count: len(results)}
	total := 0
	for _, r := range results {
		total += r.Score
		if r.DistanceKm != nil && *r.DistanceKm <= NearbyRadiusKm {
			s.Nearby++
		}
	}
	s.AverageScore = int(math.Round(float64(total) / float64(len(results))))

	s.Lines = []string{
		fmt.Sprintf("found %d matching projects", s.Count),
		fmt.Sprintf("average match score %d%%", s.AverageScore),
	}
	if s.Nearby > 0 {
		s.Lines = append(s.Lines, fmt.Sprintf("%d within %.0f km", s.Nearby, NearbyRadiusKm))
	}
	return s
}
