package geo

import (
	"errors"
	"math"
	"testing"
)

var (
	beijing  = Coordinate{Latitude: 39.9042, Longitude: 116.4074}
	shanghai = Coordinate{Latitude: 31.2304, Longitude: 121.4737}
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Coordinate
		wantMin float64
		wantMax float64
	}{
		{
			name:    "identical points",
			a:       beijing,
			b:       beijing,
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:    "short hop inside Beijing",
			a:       beijing,
			b:       Coordinate{Latitude: 39.92, Longitude: 116.43},
			wantMin: 2.4,
			wantMax: 2.8,
		},
		{
			name:    "Beijing to Shanghai",
			a:       beijing,
			b:       shanghai,
			wantMin: 1060,
			wantMax: 1075,
		},
		{
			name:    "one degree of latitude",
			a:       Coordinate{Latitude: 0, Longitude: 0},
			b:       Coordinate{Latitude: 1, Longitude: 0},
			wantMin: 111.1,
			wantMax: 111.3,
		},
		{
			name:    "antipodal points",
			a:       Coordinate{Latitude: 0, Longitude: 0},
			b:       Coordinate{Latitude: 0, Longitude: 180},
			wantMin: math.Pi*EarthRadiusKm - 0.01,
			wantMax: math.Pi*EarthRadiusKm + 0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("DistanceKm() = %f, want in [%f, %f]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := []Coordinate{
		beijing,
		shanghai,
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: 89.9, Longitude: -179.9},
		{Latitude: -89.9, Longitude: 179.9},
	}

	for i, a := range points {
		for j, b := range points {
			ab := DistanceKm(a, b)
			ba := DistanceKm(b, a)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("points %d,%d: DistanceKm(a,b)=%f, DistanceKm(b,a)=%f", i, j, ab, ba)
			}
			if i == j && ab != 0 {
				t.Errorf("point %d: distance to itself = %f, want 0", i, ab)
			}
		}
	}
}

func TestDistanceKm_Monotonic(t *testing.T) {
	origin := Coordinate{Latitude: 10, Longitude: 20}
	prev := -1.0
	for step := 0; step <= 75; step += 5 {
		d := DistanceKm(origin, Coordinate{Latitude: 10 + float64(step), Longitude: 20})
		if d <= prev {
			t.Fatalf("distance did not increase at step %d: %f <= %f", step, d, prev)
		}
		prev = d
	}
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr error
	}{
		{name: "valid", coord: beijing},
		{name: "poles and meridian edges", coord: Coordinate{Latitude: 90, Longitude: -180}},
		{name: "latitude too high", coord: Coordinate{Latitude: 90.01}, wantErr: ErrInvalidLatitude},
		{name: "latitude too low", coord: Coordinate{Latitude: -91}, wantErr: ErrInvalidLatitude},
		{name: "latitude NaN", coord: Coordinate{Latitude: math.NaN()}, wantErr: ErrInvalidLatitude},
		{name: "longitude too high", coord: Coordinate{Longitude: 180.5}, wantErr: ErrInvalidLongitude},
		{name: "longitude too low", coord: Coordinate{Longitude: -200}, wantErr: ErrInvalidLongitude},
		{name: "negative accuracy", coord: Coordinate{Accuracy: -1}, wantErr: ErrInvalidAccuracy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsWithinBounds(t *testing.T) {
	beijingBox := Bounds{
		Northeast: Coordinate{Latitude: 41.0, Longitude: 117.5},
		Southwest: Coordinate{Latitude: 39.4, Longitude: 115.4},
	}

	tests := []struct {
		name   string
		point  Coordinate
		bounds Bounds
		want   bool
	}{
		{name: "inside", point: beijing, bounds: beijingBox, want: true},
		{name: "on southwest corner", point: beijingBox.Southwest, bounds: beijingBox, want: true},
		{name: "on northeast corner", point: beijingBox.Northeast, bounds: beijingBox, want: true},
		{name: "north of box", point: Coordinate{Latitude: 41.1, Longitude: 116}, bounds: beijingBox, want: false},
		{name: "east of box", point: shanghai, bounds: beijingBox, want: false},
		{
			name:  "antimeridian viewport matches nothing",
			point: Coordinate{Latitude: 0, Longitude: 179.5},
			bounds: Bounds{
				Northeast: Coordinate{Latitude: 10, Longitude: -170},
				Southwest: Coordinate{Latitude: -10, Longitude: 170},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinBounds(tt.point, tt.bounds); got != tt.want {
				t.Errorf("IsWithinBounds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds_Validate(t *testing.T) {
	ok := Bounds{
		Northeast: Coordinate{Latitude: 10, Longitude: 10},
		Southwest: Coordinate{Latitude: 0, Longitude: 0},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	flipped := Bounds{Northeast: ok.Southwest, Southwest: ok.Northeast}
	if err := flipped.Validate(); err == nil {
		t.Error("expected error for southwest north of northeast")
	}

	bad := Bounds{Northeast: Coordinate{Latitude: 100}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidLatitude) {
		t.Errorf("Validate() error = %v, want ErrInvalidLatitude", err)
	}
}
