package maps

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoResults = errors.New("maps: no results")
	ErrNoRoute   = errors.New("maps: no route between points")
)

// MapsProvider is the set of mapping operations the booking pipeline needs.
// Implementations must keep coordinates longitude-first on the wire when the
// provider expects it, and must pass the session token through untouched.
type MapsProvider interface {
	Name() string
	Suggest(ctx context.Context, request *SuggestRequest) ([]Suggestion, error)
	Retrieve(ctx context.Context, request *RetrieveRequest) (*Feature, error)
	ReverseGeocode(ctx context.Context, request *ReverseGeocodeRequest) (*Feature, error)
	GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LngLat renders the location the way Mapbox and OSRM expect it.
func (l Location) LngLat() string {
	return fmt.Sprintf("%f,%f", l.Longitude, l.Latitude)
}

// LatLng renders the location the way Google expects it.
func (l Location) LatLng() string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}

type BoundingBox struct {
	MinLongitude float64 `json:"min_longitude"`
	MinLatitude  float64 `json:"min_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLongitude, b.MinLatitude, b.MaxLongitude, b.MaxLatitude)
}

func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}

type SuggestRequest struct {
	Query        string       `json:"query"`
	SessionToken string       `json:"session_token"`
	Proximity    *Location    `json:"proximity,omitempty"`
	BBox         *BoundingBox `json:"bbox,omitempty"`
	Country      string       `json:"country,omitempty"`
	Language     string       `json:"language,omitempty"`
	Types        []string     `json:"types,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// Suggestion is one autocomplete hit. Location is nil when the provider
// requires a Retrieve call to obtain coordinates.
type Suggestion struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Location *Location `json:"location,omitempty"`
}

// DisplayText is the label shown to the user for the suggestion.
func (s Suggestion) DisplayText() string {
	if s.Address != "" {
		return s.Address
	}
	return s.Name
}

type RetrieveRequest struct {
	ID           string `json:"id"`
	SessionToken string `json:"session_token"`
	Language     string `json:"language,omitempty"`
}

type ReverseGeocodeRequest struct {
	Location Location `json:"location"`
	Language string   `json:"language,omitempty"`
}

// Feature is a resolved place returned by Retrieve or ReverseGeocode.
type Feature struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Location Location `json:"location"`
}

func (f Feature) Label() string {
	if f.Address != "" {
		return f.Address
	}
	return f.Name
}

type DirectionsRequest struct {
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
	Mode        string   `json:"mode"` // driving, walking, cycling
	Language    string   `json:"language,omitempty"`
}

type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Distance float64    `json:"distance"` // in meters
	Duration float64    `json:"duration"` // in seconds
	Geometry []Location `json:"geometry"`
}

// APIError is a non-2xx answer from a provider's HTTP API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
