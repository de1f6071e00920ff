// Package project stores published collaboration projects and user
// collaboration profiles, and converts them into matching candidates.
package project

import (
	"time"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/matching"
)

// StatusActive is the only status whose projects are offered for matching.
const StatusActive = "active"

// Project is a listed opportunity with its location and collaboration settings.
type Project struct {
	ID          string                  `json:"id"`
	FounderID   string                  `json:"founder_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      string                  `json:"status"`
	Published   bool                    `json:"published"`
	Location    collab.LocationSettings `json:"location"`
	ServiceArea collab.ServiceArea      `json:"service_area"`
	Preference  collab.Preference       `json:"preference"`

	// Coordinate is nil until the address has been geocoded.
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Address    string          `json:"address,omitempty"`
	City       string          `json:"city,omitempty"`
	Region     string          `json:"region,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Listed reports whether the project is published and active.
func (p *Project) Listed() bool {
	return p.Published && p.Status == StatusActive
}

// Candidate converts the project into a matching candidate.
//
// A project with neither coordinate nor city has no location data at all
// and becomes a candidate without a geo profile.
func (p *Project) Candidate() matching.Candidate {
	c := matching.Candidate{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		LocationType:    p.Location.Type,
		ServiceAreaType: p.ServiceArea.Type,
	}
	if p.Coordinate == nil && p.City == "" && p.Region == "" && p.Preference == (collab.Preference{}) {
		return c
	}
	c.Geo = &matching.GeoProfile{
		Coordinate: copyCoordinate(p.Coordinate),
		City:       p.City,
		Region:     p.Region,
		Preference: p.Preference,
		Visibility: p.Location.Visibility,
	}
	return c
}

// Profile is a user's own location and collaboration preference.
type Profile struct {
	UserID     string            `json:"user_id"`
	Coordinate *geo.Coordinate   `json:"coordinate,omitempty"`
	Address    string            `json:"address,omitempty"`
	City       string            `json:"city,omitempty"`
	Region     string            `json:"region,omitempty"`
	Preference collab.Preference `json:"preference"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Requester converts the profile into a matching requester.
func (p *Profile) Requester() matching.Requester {
	return matching.Requester{
		ID:         p.UserID,
		Coordinate: copyCoordinate(p.Coordinate),
		Preference: p.Preference,
	}
}

// Candidates converts projects into matching candidates, preserving order.
func Candidates(projects []*Project) []matching.Candidate {
	out := make([]matching.Candidate, len(projects))
	for i, p := range projects {
		out[i] = p.Candidate()
	}
	return out
}

func copyCoordinate(c *geo.Coordinate) *geo.Coordinate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func copyProject(p *Project) *Project {
	cp := *p
	cp.Coordinate = copyCoordinate(p.Coordinate)
	if p.ServiceArea.TargetRegions != nil {
		cp.ServiceArea.TargetRegions = append([]string(nil), p.ServiceArea.TargetRegions...)
	}
	return &cp
}

func copyProfile(p *Profile) *Profile {
	cp := *p
	cp.Coordinate = copyCoordinate(p.Coordinate)
	return &cp
}
