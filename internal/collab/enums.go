// Package collab defines how a party wants to collaborate: collaboration
// mode, meeting format, time-zone flexibility, location settings and service
// area, together with their defaults and validation rules.
package collab

import (
	"errors"
	"fmt"
)

// Enum validation errors.
var (
	ErrInvalidMode              = errors.New("invalid collaboration mode")
	ErrInvalidMeetingPreference = errors.New("invalid meeting preference")
	ErrInvalidLocationType      = errors.New("invalid location type")
	ErrInvalidVisibility        = errors.New("invalid location visibility")
	ErrInvalidServiceAreaType   = errors.New("invalid service area type")
)

// Mode is a party's stated willingness to work locally, remotely or flexibly.
type Mode string

const (
	ModeLocalOnly        Mode = "local_only"
	ModeRemoteFriendly   Mode = "remote_friendly"
	ModeLocationFlexible Mode = "location_flexible"
)

// Modes lists every collaboration mode in display order.
var Modes = []Mode{ModeLocalOnly, ModeRemoteFriendly, ModeLocationFlexible}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeLocalOnly, ModeRemoteFriendly, ModeLocationFlexible:
		return true
	}
	return false
}

// ParseMode converts s to a Mode, rejecting unknown values.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// MeetingPreference is whether a party wants to meet online, offline or either.
type MeetingPreference string

const (
	MeetingOnline  MeetingPreference = "online"
	MeetingOffline MeetingPreference = "offline"
	MeetingBoth    MeetingPreference = "both"
)

// Valid reports whether p is one of the known meeting preferences.
func (p MeetingPreference) Valid() bool {
	switch p {
	case MeetingOnline, MeetingOffline, MeetingBoth:
		return true
	}
	return false
}

// ParseMeetingPreference converts s to a MeetingPreference, rejecting unknown values.
func ParseMeetingPreference(s string) (MeetingPreference, error) {
	p := MeetingPreference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMeetingPreference, s)
	}
	return p, nil
}

// LocationType describes where the work physically happens.
type LocationType string

const (
	LocationPhysical LocationType = "physical"
	LocationRemote   LocationType = "remote"
	LocationHybrid   LocationType = "hybrid"
)

// Valid reports whether t is one of the known location types.
func (t LocationType) Valid() bool {
	switch t {
	case LocationPhysical, LocationRemote, LocationHybrid:
		return true
	}
	return false
}

// ParseLocationType converts s to a LocationType, rejecting unknown values.
func ParseLocationType(s string) (LocationType, error) {
	t := LocationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocationType, s)
	}
	return t, nil
}

// Visibility controls how much of a location is shown to other users.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityCityOnly Visibility = "city_only"
	VisibilityHidden   Visibility = "hidden"
)

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityCityOnly, VisibilityHidden:
		return true
	}
	return false
}

// ServiceAreaType is the geographic reach a project targets.
type ServiceAreaType string

const (
	ServiceAreaLocal    ServiceAreaType = "local"
	ServiceAreaRegional ServiceAreaType = "regional"
	ServiceAreaNational ServiceAreaType = "national"
	ServiceAreaGlobal   ServiceAreaType = "global"
)

// Valid reports whether t is one of the known service area types.
func (t ServiceAreaType) Valid() bool {
	switch t {
	case ServiceAreaLocal, ServiceAreaRegional, ServiceAreaNational, ServiceAreaGlobal:
		return true
	}
	return false
}
