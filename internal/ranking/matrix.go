package ranking

import "github.com/onnwee/collabmatch/internal/collab"

// UnmappedScore is returned for enum pairs missing from a table.
// With closed enums this only happens for invalid input.
const UnmappedScore = 50

type modePair struct {
	requester, candidate collab.Mode
}

// modeMatrix rows are the requester's mode, columns the candidate's.
// The table is symmetric today but keyed by direction so that who
// initiated can be weighted differently later.
var modeMatrix = map[modePair]int{
	{collab.ModeLocalOnly, collab.ModeLocalOnly}:               100,
	{collab.ModeLocalOnly, collab.ModeRemoteFriendly}:          30,
	{collab.ModeLocalOnly, collab.ModeLocationFlexible}:        70,
	{collab.ModeRemoteFriendly, collab.ModeLocalOnly}:          30,
	{collab.ModeRemoteFriendly, collab.ModeRemoteFriendly}:     100,
	{collab.ModeRemoteFriendly, collab.ModeLocationFlexible}:   90,
	{collab.ModeLocationFlexible, collab.ModeLocalOnly}:        70,
	{collab.ModeLocationFlexible, collab.ModeRemoteFriendly}:   90,
	{collab.ModeLocationFlexible, collab.ModeLocationFlexible}: 100,
}

// ModeCompatibility scores how well two collaboration modes fit together.
func ModeCompatibility(requester, candidate collab.Mode) int {
	if s, ok := modeMatrix[modePair{requester, candidate}]; ok {
		return s
	}
	return UnmappedScore
}

type meetingPair struct {
	requester, candidate collab.MeetingPreference
}

// meetingMatrix: identical preferences fit fully, a flexible side unlocks
// most of the value, and opposite rigid preferences still score 30.
var meetingMatrix = map[meetingPair]int{
	{collab.MeetingOnline, collab.MeetingOnline}:   100,
	{collab.MeetingOnline, collab.MeetingOffline}:  30,
	{collab.MeetingOnline, collab.MeetingBoth}:     80,
	{collab.MeetingOffline, collab.MeetingOnline}:  30,
	{collab.MeetingOffline, collab.MeetingOffline}: 100,
	{collab.MeetingOffline, collab.MeetingBoth}:    80,
	{collab.MeetingBoth, collab.MeetingOnline}:     80,
	{collab.MeetingBoth, collab.MeetingOffline}:    80,
	{collab.MeetingBoth, collab.MeetingBoth}:       100,
}

// MeetingCompatibility scores how well two meeting preferences fit together.
func MeetingCompatibility(requester, candidate collab.MeetingPreference) int {
	if s, ok := meetingMatrix[meetingPair{requester, candidate}]; ok {
		return s
	}
	return UnmappedScore
}

// timeZoneScores is indexed by how many parties accept cross-time-zone work.
var timeZoneScores = [3]int{50, 70, 100}

// TimeZoneScore scores the combined time-zone flexibility of two parties.
func TimeZoneScore(requesterFlexible, candidateFlexible bool) int {
	n := 0
	if requesterFlexible {
		n++
	}
	if candidateFlexible {
		n++
	}
	return timeZoneScores[n]
}
