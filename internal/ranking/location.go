package ranking

import (
	"math"

	"github.com/onnwee/collabmatch/internal/collab"
)

// Location sub-score bounds for candidates inside the shared range.
const (
	locationInRangeMax   = 100.0
	locationInRangeFloor = 50.0
	locationRangeSpan    = 50.0
)

// LocationInput is everything the location sub-score depends on.
// MaxDistanceKm values should already have preference defaults applied.
type LocationInput struct {
	Resolved               bool // both coordinates known
	DistanceKm             float64
	RequesterMode          collab.Mode
	CandidateMode          collab.Mode
	RequesterMaxDistanceKm float64
	CandidateMaxDistanceKm float64
}

// locationCase keys the fallback table for candidates that are unresolved
// or out of range. For unresolved pairs "remote" means the requester is
// remote-friendly; for out-of-range pairs it means either side is.
type locationCase struct {
	resolved bool
	remote   bool
}

var locationFallback = map[locationCase]float64{
	{resolved: false, remote: true}:  80,
	{resolved: false, remote: false}: 40,
	{resolved: true, remote: true}:   40,
	{resolved: true, remote: false}:  10,
}

// SharedRangeKm is the larger of the two parties' max distances.
func (in LocationInput) SharedRangeKm() float64 {
	return math.Max(in.RequesterMaxDistanceKm, in.CandidateMaxDistanceKm)
}

// InRange reports whether both coordinates are known and within the shared range.
func (in LocationInput) InRange() bool {
	return in.Resolved && in.DistanceKm <= in.SharedRangeKm()
}

// LocationScore scores physical proximity in [10, 100].
//
// Inside the shared range the score falls linearly from 100 to a floor of
// 50; outside it or without coordinates the fallback table applies.
func LocationScore(in LocationInput) float64 {
	if in.InRange() {
		m := in.SharedRangeKm()
		if m <= 0 {
			return locationInRangeMax
		}
		return math.Max(locationInRangeMax-(in.DistanceKm/m)*locationRangeSpan, locationInRangeFloor)
	}

	remote := in.RequesterMode == collab.ModeRemoteFriendly
	if in.Resolved {
		remote = remote || in.CandidateMode == collab.ModeRemoteFriendly
	}
	return locationFallback[locationCase{resolved: in.Resolved, remote: remote}]
}
