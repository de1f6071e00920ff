package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig is the JSON layout of a calibration file.
type CalibrationConfig struct {
	Version string       `json:"version"` // Config version for future compatibility
	Weights MatchWeights `json:"weights"`
}

// LoadCalibration reads a weight profile from a JSON calibration file.
// An empty path yields the defaults without error. On any read, parse or
// validation failure the defaults are returned together with the error.
// Partial files are merged over the defaults.
func LoadCalibration(filePath string) (MatchWeights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("invalid calibration file, using defaults",
			"path", filePath,
			"error", err)
		return defaults, fmt.Errorf("invalid calibration file: %w", err)
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration applies every non-zero field of override on top of base.
func MergeCalibration(base, override MatchWeights) MatchWeights {
	result := base
	if override.LocationWeight != 0 {
		result.LocationWeight = override.LocationWeight
	}
	if override.ModeWeight != 0 {
		result.ModeWeight = override.ModeWeight
	}
	if override.MeetingWeight != 0 {
		result.MeetingWeight = override.MeetingWeight
	}
	if override.TimeZoneWeight != 0 {
		result.TimeZoneWeight = override.TimeZoneWeight
	}
	if override.MaxDistanceKm != 0 {
		result.MaxDistanceKm = override.MaxDistanceKm
	}
	if override.MinScore != 0 {
		result.MinScore = override.MinScore
	}
	return result
}

func logCalibrationOverrides(defaults, loaded MatchWeights) {
	var overrides []string

	floatFields := []struct {
		name     string
		def, got float64
	}{
		{"location_weight", defaults.LocationWeight, loaded.LocationWeight},
		{"mode_weight", defaults.ModeWeight, loaded.ModeWeight},
		{"meeting_weight", defaults.MeetingWeight, loaded.MeetingWeight},
		{"time_zone_weight", defaults.TimeZoneWeight, loaded.TimeZoneWeight},
		{"max_distance_km", defaults.MaxDistanceKm, loaded.MaxDistanceKm},
	}
	for _, f := range floatFields {
		if f.def != f.got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", f.name, f.def, f.got))
		}
	}
	if defaults.MinScore != loaded.MinScore {
		overrides = append(overrides, fmt.Sprintf("min_score: %d -> %d", defaults.MinScore, loaded.MinScore))
	}

	if len(overrides) > 0 {
		slog.Info("loaded match calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded match calibration (using all defaults)")
	}
}
