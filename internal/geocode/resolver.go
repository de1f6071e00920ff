package geocode

import (
	"context"
	"log/slog"

	"github.com/onnwee/collabmatch/internal/geo"
)

// Result is a resolved location.
type Result struct {
	Coordinate       geo.Coordinate `json:"coordinate"`
	FormattedAddress string         `json:"formatted_address"`
	Province         string         `json:"province,omitempty"`
	City             string         `json:"city,omitempty"`
	District         string         `json:"district,omitempty"`
	Level            string         `json:"level,omitempty"`
}

// Resolver turns addresses into coordinates and coordinates into addresses.
type Resolver interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (*Result, error)
}

// Locate geocodes address and returns nil on any failure. An empty address
// or a nil resolver also yields nil. Failures are logged at warn level.
func Locate(ctx context.Context, r Resolver, logger *slog.Logger, address string) *Result {
	if r == nil || address == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	res, err := r.Geocode(ctx, address)
	if err != nil {
		logger.Warn("address could not be resolved, continuing without coordinate",
			slog.String("error_type", string(TypeOf(err))),
			slog.String("error", err.Error()))
		return nil
	}
	return res
}
