// Package ranking holds the rule tables and weight profile behind
// collaboration matching.
//
// Basic usage:
//
//	// Load calibration once at startup
//	weights, err := ranking.LoadCalibration("configs/match.calibration.json")
//	if err != nil {
//		slog.Warn("using default match weights", "error", err)
//	}
//
//	sub := ranking.SubScores{
//		Location: ranking.LocationScore(ranking.LocationInput{...}),
//		Mode:     float64(ranking.ModeCompatibility(requesterMode, candidateMode)),
//		Meeting:  float64(ranking.MeetingCompatibility(requesterMeeting, candidateMeeting)),
//		TimeZone: float64(ranking.TimeZoneScore(requesterFlexible, candidateFlexible)),
//	}
//	score, usedDefaults := ranking.Aggregate(sub, weights)
//
// Rule tables:
//
// The mode and meeting matrices and the location fallback table are plain
// data keyed by ordered pairs, so a new enum value is an added row, not a
// new branch. Every sub-score lies in [0, 100].
//
// Calibration:
//
// Weights are tuned at deploy time with a JSON file. Partial files are
// merged with the defaults; a restart picks up changes.
package ranking
