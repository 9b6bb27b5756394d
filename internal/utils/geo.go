package utils

import (
	"fmt"
	"strconv"
	"strings"
)

func IsValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// CoordinateLabel is the label shown for a position that could not be
// reverse geocoded: latitude then longitude, 4 decimals each.
func CoordinateLabel(lat, lng float64) string {
	return fmt.Sprintf("%.*f, %.*f", CoordinateLabelPrecision, lat, CoordinateLabelPrecision, lng)
}

// CoordinateKey builds a cache key from a position rounded to the label
// precision, so nearby lookups share an entry.
func CoordinateKey(prefix string, lat, lng float64) string {
	return fmt.Sprintf("%s:%.*f,%.*f", prefix, CoordinateLabelPrecision, lat, CoordinateLabelPrecision, lng)
}

// ParseFloats parses every value of parts as a float64.
func ParseFloats(parts []string) ([]float64, error) {
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", part, err)
		}
		values[i] = v
	}
	return values, nil
}
