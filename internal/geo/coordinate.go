// Package geo provides geolocation utilities: coordinate validation,
// great-circle distance, viewport bounds and coarse geohash display.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Coordinate validation errors.
var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrInvalidAccuracy  = errors.New("accuracy must be a non-negative number")
)

// Coordinate is an immutable geographic point in decimal degrees.
// Accuracy is the reported horizontal accuracy in meters; zero means unknown.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Validate reports whether the coordinate lies within the valid ranges.
// Out-of-range values are rejected, never clamped.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w (got %v)", ErrInvalidLatitude, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w (got %v)", ErrInvalidLongitude, c.Longitude)
	}
	if math.IsNaN(c.Accuracy) || c.Accuracy < 0 {
		return fmt.Errorf("%w (got %v)", ErrInvalidAccuracy, c.Accuracy)
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b in kilometers
// using the haversine formula on a sphere of radius EarthRadiusKm.
//
// The result is symmetric and zero for identical points. Callers validate
// ranges first; out-of-range input yields a meaningless but finite value.
func DistanceKm(a, b Coordinate) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*sinLon*sinLon

	// Rounding can push h a hair above 1 for antipodal points.
	if h > 1 {
		h = 1
	}

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds is a rectangular viewport described by its corners.
type Bounds struct {
	Northeast Coordinate `json:"northeast"`
	Southwest Coordinate `json:"southwest"`
}

// Validate checks both corners and their ordering.
func (b Bounds) Validate() error {
	if err := b.Northeast.Validate(); err != nil {
		return fmt.Errorf("northeast: %w", err)
	}
	if err := b.Southwest.Validate(); err != nil {
		return fmt.Errorf("southwest: %w", err)
	}
	if b.Southwest.Latitude > b.Northeast.Latitude {
		return errors.New("southwest latitude must not exceed northeast latitude")
	}
	return nil
}

// IsWithinBounds reports whether point lies inside the rectangle, edges inclusive.
//
// The check is a plain min/max comparison on each axis. A viewport that
// crosses the antimeridian (southwest longitude > northeast longitude)
// therefore matches nothing.
func IsWithinBounds(point Coordinate, b Bounds) bool {
	return point.Latitude >= b.Southwest.Latitude &&
		point.Latitude <= b.Northeast.Latitude &&
		point.Longitude >= b.Southwest.Longitude &&
		point.Longitude <= b.Northeast.Longitude
}
