package models

import "math"

// RouteEstimate is a driving route between two resolved places. It is
// replaced as a whole whenever either endpoint changes.
type RouteEstimate struct {
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
	Geometry        []Coordinates `json:"geometry"`
}

// DurationMinutes is the estimated duration rounded down to whole minutes.
func (r RouteEstimate) DurationMinutes() int {
	return int(math.Floor(r.DurationSeconds / 60))
}

func (r RouteEstimate) DistanceKilometers() float64 {
	return math.Round(r.DistanceMeters/100) / 10
}
