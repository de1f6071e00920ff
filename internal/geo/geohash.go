package geo

import "strings"

// Geohash precisions used when exposing candidate locations.
const (
	// DefaultPrecision gives roughly ±0.61 km, fine enough for a neighbourhood.
	DefaultPrecision = 6
	// CityPrecision gives roughly ±2.4 km and is used for city_only visibility.
	CityPrecision = 5
)

// base32 is the geohash alphabet; it omits 'a', 'i', 'l' and 'o'.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode returns the geohash of c with the given number of characters.
// A precision below 1 falls back to DefaultPrecision.
func Encode(c Coordinate, precision int) string {
	if precision < 1 {
		precision = DefaultPrecision
	}

	lat := [2]float64{-90, 90}
	lng := [2]float64{-180, 180}

	var sb strings.Builder
	sb.Grow(precision)

	var bit, idx int
	evenBit := true
	for sb.Len() < precision {
		idx <<= 1
		if evenBit {
			if mid := (lng[0] + lng[1]) / 2; c.Longitude > mid {
				idx |= 1
				lng[0] = mid
			} else {
				lng[1] = mid
			}
		} else {
			if mid := (lat[0] + lat[1]) / 2; c.Latitude > mid {
				idx |= 1
				lat[0] = mid
			} else {
				lat[1] = mid
			}
		}
		evenBit = !evenBit

		if bit++; bit == 5 {
			sb.WriteByte(base32[idx])
			bit, idx = 0, 0
		}
	}

	return sb.String()
}

// Truncate shortens a geohash to precision characters for coarse display.
// It returns "" for empty input, precision < 1, or characters outside the
// geohash alphabet. Valid input is normalized to lowercase.
func Truncate(hash string, precision int) string {
	if hash == "" || precision < 1 {
		return ""
	}

	lower := strings.ToLower(hash)
	for _, r := range lower {
		if !strings.ContainsRune(base32, r) {
			return ""
		}
	}

	if len(lower) <= precision {
		return lower
	}
	return lower[:precision]
}
