package matching

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/ranking"
)

// benchCandidates builds n candidates spread up to 400 km north of Beijing,
// some without coordinates.
func benchCandidates(n int) []Candidate {
	meetings := []collab.MeetingPreference{collab.MeetingOnline, collab.MeetingOffline, collab.MeetingBoth}
	cands := make([]Candidate, 0, n)
	for i := range n {
		var c *geo.Coordinate
		if i%7 != 0 {
			c = north(beijing, float64((i*37)%400))
		}
		p := pref(collab.Modes[i%3], float64(10*(i%9)), meetings[i%3], i%2 == 0)
		cands = append(cands, candidateAt(fmt.Sprintf("c%05d", i), c, p))
	}
	return cands
}

// BenchmarkRank compares sequential and pooled scoring around the size
// where the engine switches to workers.
func BenchmarkRank(b *testing.B) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocationFlexible, 80, collab.MeetingBoth, true)}
	w := ranking.DefaultWeights()

	for _, n := range []int{16, parallelThreshold / 2, parallelThreshold, 4 * parallelThreshold, 1024} {
		cands := benchCandidates(n)
		for _, workers := range []int{1, runtime.GOMAXPROCS(0)} {
			engine := NewEngine(EngineConfig{Workers: workers})
			b.Run(fmt.Sprintf("candidates=%d/workers=%d", n, workers), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := engine.Rank(b.Context(), req, cands, w, DefaultLimit); err != nil {
						b.Fatalf("Rank() error = %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkScore measures scoring a single candidate.
func BenchmarkScore(b *testing.B) {
	req := Requester{Coordinate: &beijing, Preference: pref(collab.ModeLocalOnly, 50, collab.MeetingOffline, true)}
	cands := []Candidate{candidateAt("c", north(beijing, 12), pref(collab.ModeLocationFlexible, 30, collab.MeetingBoth, false))}
	engine := NewEngine(EngineConfig{})
	w := ranking.DefaultWeights()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Rank(b.Context(), req, cands, w, 1)
	}
}
