package matching

import (
	"fmt"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
)

// GeoProfile is the resolved location and collaboration preference of a
// candidate. Coordinate is nil when the address was never resolved.
type GeoProfile struct {
	Coordinate *geo.Coordinate   `json:"coordinate,omitempty"`
	City       string            `json:"city,omitempty"`
	Region     string            `json:"region,omitempty"`
	Preference collab.Preference `json:"preference"`
	Visibility collab.Visibility `json:"visibility,omitempty"`
}

// Candidate is an opportunity (or person) being matched against a requester.
// Geo is nil when the candidate has no location data at all.
type Candidate struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	LocationType    collab.LocationType    `json:"location_type,omitempty"`
	ServiceAreaType collab.ServiceAreaType `json:"service_area_type,omitempty"`
	Geo             *GeoProfile            `json:"geo,omitempty"`
}

// Requester is the party asking for matches.
type Requester struct {
	ID         string            `json:"id,omitempty"`
	Coordinate *geo.Coordinate   `json:"coordinate,omitempty"`
	Preference collab.Preference `json:"preference"`
}

// Preference returns the candidate's preference with defaults applied.
func (c Candidate) Preference() collab.Preference {
	if c.Geo == nil {
		return collab.DefaultPreference()
	}
	return c.Geo.Preference.WithDefaults()
}

// Coordinate returns the candidate's resolved coordinate, or nil.
func (c Candidate) Coordinate() *geo.Coordinate {
	if c.Geo == nil {
		return nil
	}
	return c.Geo.Coordinate
}

// Visibility returns how much of the candidate's location may be shown.
func (c Candidate) Visibility() collab.Visibility {
	if c.Geo == nil || c.Geo.Visibility == "" {
		return collab.VisibilityCityOnly
	}
	return c.Geo.Visibility
}

// Validate rejects candidates carrying out-of-range coordinates or unknown
// enum values. Missing data is not an error.
func (c Candidate) Validate() error {
	if c.LocationType != "" && !c.LocationType.Valid() {
		return fmt.Errorf("candidate %s: %w: %q", c.ID, collab.ErrInvalidLocationType, c.LocationType)
	}
	if c.ServiceAreaType != "" && !c.ServiceAreaType.Valid() {
		return fmt.Errorf("candidate %s: %w: %q", c.ID, collab.ErrInvalidServiceAreaType, c.ServiceAreaType)
	}
	if c.Geo == nil {
		return nil
	}
	if c.Geo.Visibility != "" && !c.Geo.Visibility.Valid() {
		return fmt.Errorf("candidate %s: %w: %q", c.ID, collab.ErrInvalidVisibility, c.Geo.Visibility)
	}
	if err := c.Geo.Preference.Validate(); err != nil {
		return fmt.Errorf("candidate %s: %w", c.ID, err)
	}
	if c.Geo.Coordinate != nil {
		if err := c.Geo.Coordinate.Validate(); err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
	}
	return nil
}

// Validate rejects a requester with an out-of-range coordinate or an
// invalid preference.
func (r Requester) Validate() error {
	if err := r.Preference.Validate(); err != nil {
		return fmt.Errorf("requester: %w", err)
	}
	if r.Coordinate != nil {
		if err := r.Coordinate.Validate(); err != nil {
			return fmt.Errorf("requester: %w", err)
		}
	}
	return nil
}
