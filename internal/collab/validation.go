package collab

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/collabmatch/internal/geo"
)

// Thresholds used by the settings checks.
const (
	MaxServiceAreaDescriptionLength = 300
	MaxTargetRegions                = 20
	maxLocalTargetRegions           = 3
	impracticalDistanceKm           = 1000.0
	tinyLocalDistanceKm             = 1.0
	wideLocalDistanceKm             = 100.0
	maxPlausibleAccuracyMeters      = 10000.0
)

// PrimaryMarket is the rough mainland China box; coordinates outside it
// are accepted but flagged for confirmation.
var PrimaryMarket = geo.Bounds{
	Northeast: geo.Coordinate{Latitude: 53.5, Longitude: 134.8},
	Southwest: geo.Coordinate{Latitude: 18.2, Longitude: 73.5},
}

// Settings validation errors.
var (
	ErrDescriptionTooLong = errors.New("service area description is too long")
	ErrBlankTargetRegion  = errors.New("target regions contain a blank entry")
	ErrModeConflict       = errors.New("local_only collaboration conflicts with a remote location type")
)

// Result collects hard errors and advisory warnings from a settings check.
type Result struct {
	Errors   []error  `json:"-"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether no errors were found. Warnings do not affect validity.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Messages returns the error texts, for JSON responses.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func (r *Result) merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ValidatePreference checks a preference and flags combinations that are
// allowed but probably not what the user meant.
func ValidatePreference(p Preference) Result {
	var r Result
	if err := p.Validate(); err != nil {
		r.Errors = append(r.Errors, err)
	}

	switch {
	case p.MaxDistanceKm > impracticalDistanceKm:
		r.Warnings = append(r.Warnings, "max collaboration distance above 1000 km is unlikely to be practical")
	case p.MaxDistanceKm > 0 && p.MaxDistanceKm < tinyLocalDistanceKm && p.Mode == ModeLocalOnly:
		r.Warnings = append(r.Warnings, "a max distance under 1 km makes local-only partners hard to find")
	}

	if p.RemoteFriendly() && p.MeetingPreference == MeetingOffline {
		r.Warnings = append(r.Warnings, "remote-friendly collaboration with offline-only meetings is contradictory")
	}
	if p.Mode == ModeLocalOnly && !p.TimeZoneFlexible && p.MaxDistanceKm > wideLocalDistanceKm {
		r.Warnings = append(r.Warnings, "local-only collaboration over more than 100 km without time-zone flexibility is contradictory")
	}
	return r
}

// ValidateLocationSettings checks location presentation settings.
func ValidateLocationSettings(s LocationSettings) Result {
	var r Result
	if s.Type != "" && !s.Type.Valid() {
		r.Errors = append(r.Errors, fmt.Errorf("%w: %q", ErrInvalidLocationType, s.Type))
	}
	if s.Visibility != "" && !s.Visibility.Valid() {
		r.Errors = append(r.Errors, fmt.Errorf("%w: %q", ErrInvalidVisibility, s.Visibility))
	}

	if s.Type == LocationRemote && s.ShowExactAddress {
		r.Warnings = append(r.Warnings, "showing an exact address is unnecessary for a remote project")
	}
	if s.Visibility == VisibilityHidden && s.AllowContactForMeetup {
		r.Warnings = append(r.Warnings, "hidden location while allowing meetup contact is contradictory")
	}
	if s.Type == LocationPhysical && s.Visibility == VisibilityHidden {
		r.Warnings = append(r.Warnings, "hiding the location of a physical project may hurt collaboration")
	}
	return r
}

// ValidateServiceArea checks a service area definition.
func ValidateServiceArea(a ServiceArea) Result {
	var r Result
	if a.Type != "" && !a.Type.Valid() {
		r.Errors = append(r.Errors, fmt.Errorf("%w: %q", ErrInvalidServiceAreaType, a.Type))
	}

	seen := make(map[string]bool, len(a.TargetRegions))
	duplicate := false
	for _, region := range a.TargetRegions {
		if strings.TrimSpace(region) == "" {
			r.Errors = append(r.Errors, ErrBlankTargetRegion)
			break
		}
		if seen[region] {
			duplicate = true
		}
		seen[region] = true
	}
	if duplicate {
		r.Warnings = append(r.Warnings, "target regions contain duplicates")
	}
	if len(a.TargetRegions) > MaxTargetRegions {
		r.Warnings = append(r.Warnings, "too many target regions may dilute focus")
	}

	if n := utf8.RuneCountInString(a.Description); n > MaxServiceAreaDescriptionLength {
		r.Errors = append(r.Errors, fmt.Errorf("%w: got %d chars, maximum is %d",
			ErrDescriptionTooLong, n, MaxServiceAreaDescriptionLength))
	}

	if a.Type == ServiceAreaLocal && len(a.TargetRegions) > maxLocalTargetRegions {
		r.Warnings = append(r.Warnings, "a local service area rarely needs more than 3 target regions")
	}
	if a.Type == ServiceAreaGlobal && len(a.TargetRegions) > 0 {
		r.Warnings = append(r.Warnings, "a global service area usually needs no target regions")
	}
	return r
}

// ValidateCoordinate checks ranges and flags implausible or out-of-market points.
func ValidateCoordinate(c geo.Coordinate) Result {
	var r Result
	if err := c.Validate(); err != nil {
		r.Errors = append(r.Errors, err)
		return r
	}
	if c.Accuracy > maxPlausibleAccuracyMeters {
		r.Warnings = append(r.Warnings, "location accuracy is very coarse and may be wrong")
	}
	if !geo.IsWithinBounds(c, PrimaryMarket) {
		r.Warnings = append(r.Warnings, "coordinate lies outside mainland China, please confirm it")
	}
	return r
}

// ProjectSettings bundles everything a project can configure about collaboration.
// Nil sections are skipped.
type ProjectSettings struct {
	Preference  *Preference       `json:"collaboration_preference,omitempty"`
	Location    *LocationSettings `json:"location_settings,omitempty"`
	ServiceArea *ServiceArea      `json:"service_area,omitempty"`
	Coordinate  *geo.Coordinate   `json:"location,omitempty"`
}

// ValidateProjectSettings validates each section and then the combinations
// across sections.
func ValidateProjectSettings(s ProjectSettings) Result {
	var r Result
	if s.Preference != nil {
		r.merge(ValidatePreference(*s.Preference))
	}
	if s.Location != nil {
		r.merge(ValidateLocationSettings(*s.Location))
	}
	if s.ServiceArea != nil {
		r.merge(ValidateServiceArea(*s.ServiceArea))
	}
	if s.Coordinate != nil {
		r.merge(ValidateCoordinate(*s.Coordinate))
	}

	if s.Preference != nil && s.Location != nil {
		if s.Preference.RemoteFriendly() && s.Location.Type == LocationPhysical && s.Location.ShowExactAddress {
			r.Warnings = append(r.Warnings, "a remote-friendly project rarely needs to show its exact physical address")
		}
		if s.Preference.Mode == ModeLocalOnly && s.Location.Type == LocationRemote {
			r.Errors = append(r.Errors, ErrModeConflict)
		}
	}

	if s.Preference != nil && s.ServiceArea != nil {
		if s.ServiceArea.Type == ServiceAreaLocal && s.Preference.RemoteFriendly() {
			r.Warnings = append(r.Warnings, "a local service area and remote-friendly collaboration may conflict")
		}
		if s.ServiceArea.Type == ServiceAreaGlobal && s.Preference.Mode == ModeLocalOnly {
			r.Warnings = append(r.Warnings, "a global service area and local-only collaboration conflict")
		}
	}
	return r
}
