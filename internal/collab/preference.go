package collab

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Preference limits and defaults.
const (
	DefaultMaxDistanceKm = 50.0
	MaxNoteLength        = 500
)

// Preference validation errors.
var (
	ErrNegativeDistance = errors.New("max distance must be a non-negative number")
	ErrNoteTooLong      = errors.New("collaboration note is too long")
)

// Preference describes how a party wants to collaborate. It is attached
// either to an individual or to a listed opportunity.
//
// A zero MaxDistanceKm means "not set" and resolves to DefaultMaxDistanceKm.
type Preference struct {
	Mode              Mode              `json:"mode"`
	MaxDistanceKm     float64           `json:"max_distance_km"`
	MeetingPreference MeetingPreference `json:"meeting_preference"`
	TimeZoneFlexible  bool              `json:"time_zone_flexible"`
	Note              string            `json:"note,omitempty"`
}

// DefaultPreference is applied to parties that never stated a preference.
func DefaultPreference() Preference {
	return Preference{
		Mode:              ModeLocationFlexible,
		MaxDistanceKm:     DefaultMaxDistanceKm,
		MeetingPreference: MeetingBoth,
		TimeZoneFlexible:  true,
	}
}

// WithDefaults returns a copy with missing fields filled in.
// Present but invalid values are kept so Validate can reject them.
func (p Preference) WithDefaults() Preference {
	if p.Mode == "" {
		p.Mode = ModeLocationFlexible
	}
	if p.MeetingPreference == "" {
		p.MeetingPreference = MeetingBoth
	}
	if p.MaxDistanceKm == 0 {
		p.MaxDistanceKm = DefaultMaxDistanceKm
	}
	return p
}

// Validate rejects unknown enum values, negative or non-finite distances
// and overly long notes. Empty fields are accepted; see WithDefaults.
func (p Preference) Validate() error {
	if p.Mode != "" && !p.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	if p.MeetingPreference != "" && !p.MeetingPreference.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMeetingPreference, p.MeetingPreference)
	}
	if math.IsNaN(p.MaxDistanceKm) || math.IsInf(p.MaxDistanceKm, 0) || p.MaxDistanceKm < 0 {
		return fmt.Errorf("%w (got %v)", ErrNegativeDistance, p.MaxDistanceKm)
	}
	if n := utf8.RuneCountInString(p.Note); n > MaxNoteLength {
		return fmt.Errorf("%w: got %d chars, maximum is %d", ErrNoteTooLong, n, MaxNoteLength)
	}
	return nil
}

// RemoteFriendly reports whether the party accepts remote collaboration outright.
func (p Preference) RemoteFriendly() bool {
	return p.Mode == ModeRemoteFriendly
}
