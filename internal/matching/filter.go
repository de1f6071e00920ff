package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
)

// ModeAll disables the collaboration mode filter.
const ModeAll collab.Mode = "all"

// ErrInvalidSearchParams is wrapped by every SearchParams validation error.
var ErrInvalidSearchParams = errors.New("invalid search parameters")

// TextMatcher decides whether a candidate matches a free-text query.
// Text search itself belongs to storage; the pipeline only applies it.
type TextMatcher func(Candidate) bool

// SearchParams selects which structural filters run. Zero values disable
// a filter; all enabled filters are AND-combined.
type SearchParams struct {
	Text            TextMatcher              `json:"-"`
	Mode            collab.Mode              `json:"mode,omitempty"`
	LocationType    collab.LocationType      `json:"location_type,omitempty"`
	Meeting         collab.MeetingPreference `json:"meeting_preference,omitempty"`
	ServiceAreaType collab.ServiceAreaType   `json:"service_area_type,omitempty"`
	Center          *geo.Coordinate          `json:"center,omitempty"`
	RadiusKm        float64                  `json:"radius_km,omitempty"`
	Bounds          *geo.Bounds              `json:"bounds,omitempty"`
	City            string                   `json:"city,omitempty"`
	Region          string                   `json:"region,omitempty"`
}

// Validate checks enum values and geometry.
func (p SearchParams) Validate() error {
	if p.Mode != "" && p.Mode != ModeAll && !p.Mode.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSearchParams, collab.ErrInvalidMode, p.Mode)
	}
	if p.LocationType != "" && !p.LocationType.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSearchParams, collab.ErrInvalidLocationType, p.LocationType)
	}
	if p.Meeting != "" && !p.Meeting.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSearchParams, collab.ErrInvalidMeetingPreference, p.Meeting)
	}
	if p.ServiceAreaType != "" && !p.ServiceAreaType.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSearchParams, collab.ErrInvalidServiceAreaType, p.ServiceAreaType)
	}
	if math.IsNaN(p.RadiusKm) || math.IsInf(p.RadiusKm, 0) || p.RadiusKm < 0 {
		return fmt.Errorf("%w: radius must be a non-negative number (got %v)", ErrInvalidSearchParams, p.RadiusKm)
	}
	if p.RadiusKm > 0 && p.Center == nil {
		return fmt.Errorf("%w: radius requires a center", ErrInvalidSearchParams)
	}
	if p.Center != nil {
		if err := p.Center.Validate(); err != nil {
			return fmt.Errorf("%w: center: %w", ErrInvalidSearchParams, err)
		}
	}
	if p.Bounds != nil {
		if err := p.Bounds.Validate(); err != nil {
			return fmt.Errorf("%w: bounds: %w", ErrInvalidSearchParams, err)
		}
	}
	return nil
}

// Predicate is one named filter stage.
type Predicate struct {
	Name string
	Keep func(Candidate) bool
}

// Filter stage names, in pipeline order.
const (
	StageText         = "text"
	StageMode         = "mode"
	StageLocationType = "location_type"
	StageMeeting      = "meeting_preference"
	StageServiceArea  = "service_area"
	StageRadius       = "radius"
	StageBounds       = "bounds"
	StageCity         = "city"
	StageRegion       = "region"
)

// Predicates returns the enabled filters in pipeline order.
func (p SearchParams) Predicates() []Predicate {
	var preds []Predicate

	if p.Text != nil {
		preds = append(preds, Predicate{StageText, p.Text})
	}
	if p.Mode != "" && p.Mode != ModeAll {
		mode := p.Mode
		preds = append(preds, Predicate{StageMode, func(c Candidate) bool {
			return c.Preference().Mode == mode
		}})
	}
	if p.LocationType != "" {
		lt := p.LocationType
		preds = append(preds, Predicate{StageLocationType, func(c Candidate) bool {
			return c.LocationType == lt
		}})
	}
	if p.Meeting != "" {
		want := p.Meeting
		preds = append(preds, Predicate{StageMeeting, func(c Candidate) bool {
			got := c.Preference().MeetingPreference
			return got == want || got == collab.MeetingBoth
		}})
	}
	if p.ServiceAreaType != "" {
		sa := p.ServiceAreaType
		preds = append(preds, Predicate{StageServiceArea, func(c Candidate) bool {
			return c.ServiceAreaType == sa
		}})
	}
	if p.Center != nil && p.RadiusKm > 0 {
		center, radius := *p.Center, p.RadiusKm
		preds = append(preds, Predicate{StageRadius, func(c Candidate) bool {
			coord := c.Coordinate()
			return coord != nil && geo.DistanceKm(center, *coord) <= radius
		}})
	}
	if p.Bounds != nil {
		bounds := *p.Bounds
		preds = append(preds, Predicate{StageBounds, func(c Candidate) bool {
			coord := c.Coordinate()
			return coord != nil && geo.IsWithinBounds(*coord, bounds)
		}})
	}
	if city := strings.TrimSpace(p.City); city != "" {
		preds = append(preds, Predicate{StageCity, func(c Candidate) bool {
			return c.Geo != nil && containsFold(c.Geo.City, city)
		}})
	}
	if region := strings.TrimSpace(p.Region); region != "" {
		preds = append(preds, Predicate{StageRegion, func(c Candidate) bool {
			return c.Geo != nil && containsFold(c.Geo.Region, region)
		}})
	}
	return preds
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// StageCount is the number of candidates left after a filter stage.
type StageCount struct {
	Stage     string `json:"stage"`
	Remaining int    `json:"remaining"`
}

// FilterOutcome is the result of FilterCandidates.
type FilterOutcome struct {
	Candidates []Candidate  `json:"candidates"`
	Input      int          `json:"input"`
	Stages     []StageCount `json:"stages"`
}

// FilterCandidates applies the enabled filters in order. The input slice is
// not modified and surviving candidates keep their original order.
func FilterCandidates(cands []Candidate, p SearchParams) (FilterOutcome, error) {
	if err := p.Validate(); err != nil {
		return FilterOutcome{}, err
	}

	preds := p.Predicates()
	out := FilterOutcome{
		Input:  len(cands),
		Stages: make([]StageCount, 0, len(preds)),
	}

	current := make([]Candidate, len(cands))
	copy(current, cands)
	for _, pred := range preds {
		kept := make([]Candidate, 0, len(current))
		for _, c := range current {
			if pred.Keep(c) {
				kept = append(kept, c)
			}
		}
		current = kept
		out.Stages = append(out.Stages, StageCount{Stage: pred.Name, Remaining: len(current)})
	}

	out.Candidates = current
	return out, nil
}
