package collab

// LocationSettings controls how a project's location is presented.
type LocationSettings struct {
	Type                  LocationType `json:"type"`
	Visibility            Visibility   `json:"visibility"`
	ShowExactAddress      bool         `json:"show_exact_address"`
	AllowContactForMeetup bool         `json:"allow_contact_for_meetup"`
}

// DefaultLocationSettings is applied to projects without explicit settings.
func DefaultLocationSettings() LocationSettings {
	return LocationSettings{
		Type:                  LocationHybrid,
		Visibility:            VisibilityCityOnly,
		AllowContactForMeetup: true,
	}
}

// ServiceArea is the geographic reach a project targets.
type ServiceArea struct {
	Type          ServiceAreaType `json:"type"`
	TargetRegions []string        `json:"target_regions,omitempty"`
	Description   string          `json:"description,omitempty"`
}

// DefaultServiceArea is applied to projects without an explicit service area.
func DefaultServiceArea() ServiceArea {
	return ServiceArea{Type: ServiceAreaRegional}
}
