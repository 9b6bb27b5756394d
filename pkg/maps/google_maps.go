package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"googlemaps.github.io/maps"
)

type GoogleMapsConfig struct {
	APIKey  string
	BaseURL string
	// Radius in meters around the proximity anchor used to bias autocomplete.
	Radius uint
}

type GoogleMapsProvider struct {
	client *maps.Client
	radius uint
}

func NewGoogleMapsProvider(config GoogleMapsConfig) (*GoogleMapsProvider, error) {
	options := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, maps.WithBaseURL(config.BaseURL))
	}

	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	radius := config.Radius
	if radius == 0 {
		radius = 25000
	}

	return &GoogleMapsProvider{
		client: client,
		radius: radius,
	}, nil
}

func (g *GoogleMapsProvider) Name() string {
	return "google"
}

func (g *GoogleMapsProvider) Suggest(ctx context.Context, request *SuggestRequest) ([]Suggestion, error) {
	token, err := sessionToken(request.SessionToken)
	if err != nil {
		return nil, err
	}

	req := &maps.PlaceAutocompleteRequest{
		Input:        request.Query,
		Language:     request.Language,
		SessionToken: token,
	}
	if request.Proximity != nil {
		anchor := &maps.LatLng{Lat: request.Proximity.Latitude, Lng: request.Proximity.Longitude}
		req.Location = anchor
		req.Origin = anchor
		req.Radius = g.radius
	}
	if request.BBox != nil && !request.BBox.IsZero() {
		req.Location, req.Radius = boundsCircle(*request.BBox)
		req.StrictBounds = true
	}
	req.Types = autocompleteType(request.Types)
	if request.Country != "" {
		req.Components = map[maps.Component][]string{
			maps.ComponentCountry: {request.Country},
		}
	}

	resp, err := g.client.PlaceAutocomplete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place autocomplete failed: %w", err)
	}

	limit := len(resp.Predictions)
	if request.Limit > 0 && request.Limit < limit {
		limit = request.Limit
	}

	suggestions := make([]Suggestion, 0, limit)
	for _, prediction := range resp.Predictions[:limit] {
		suggestions = append(suggestions, Suggestion{
			ID:      prediction.PlaceID,
			Name:    prediction.StructuredFormatting.MainText,
			Address: prediction.Description,
		})
	}

	return suggestions, nil
}

func (g *GoogleMapsProvider) Retrieve(ctx context.Context, request *RetrieveRequest) (*Feature, error) {
	token, err := sessionToken(request.SessionToken)
	if err != nil {
		return nil, err
	}

	req := &maps.PlaceDetailsRequest{
		PlaceID:      request.ID,
		Language:     request.Language,
		SessionToken: token,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskGeometry,
		},
	}

	result, err := g.client.PlaceDetails(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place details failed: %w", err)
	}

	return &Feature{
		ID:      result.PlaceID,
		Name:    result.Name,
		Address: result.FormattedAddress,
		Location: Location{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, request *ReverseGeocodeRequest) (*Feature, error) {
	req := &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: request.Location.Latitude, Lng: request.Location.Longitude},
		Language: request.Language,
	}

	resp, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return nil, ErrNoResults
		}
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, ErrNoResults
	}

	result := resp[0]
	return &Feature{
		ID:      result.PlaceID,
		Address: result.FormattedAddress,
		Location: Location{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

func (g *GoogleMapsProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	mode := maps.TravelModeDriving
	if request.Mode != "" {
		mode = maps.Mode(request.Mode)
	}

	req := &maps.DirectionsRequest{
		Origin:      request.Origin.LatLng(),
		Destination: request.Destination.LatLng(),
		Mode:        mode,
		Language:    request.Language,
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		if isZeroResults(err) {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, 0, len(resp))
	for _, route := range resp {
		var distance, duration float64
		for _, leg := range route.Legs {
			distance += float64(leg.Distance.Meters)
			duration += leg.Duration.Seconds()
		}

		points, err := maps.DecodePolyline(route.OverviewPolyline.Points)
		if err != nil {
			return nil, fmt.Errorf("failed to decode route polyline: %w", err)
		}

		geometry := make([]Location, len(points))
		for i, point := range points {
			geometry[i] = Location{Latitude: point.Lat, Longitude: point.Lng}
		}

		routes = append(routes, Route{
			Distance: distance,
			Duration: duration,
			Geometry: geometry,
		})
	}

	return &DirectionsResponse{Routes: routes}, nil
}

// boundsCircle returns the smallest circle around the centre of b that
// covers it. Place Autocomplete only restricts results to a circle.
func boundsCircle(b BoundingBox) (*maps.LatLng, uint) {
	centre := &maps.LatLng{
		Lat: (b.MinLatitude + b.MaxLatitude) / 2,
		Lng: (b.MinLongitude + b.MaxLongitude) / 2,
	}
	corner := maps.LatLng{Lat: b.MaxLatitude, Lng: b.MaxLongitude}
	return centre, uint(math.Ceil(haversineMeters(*centre, corner)))
}

func haversineMeters(a, b maps.LatLng) float64 {
	const earthRadius = 6371000.0
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

// googlePlaceTypes maps the search types shared with Mapbox onto Place
// Autocomplete type collections.
var googlePlaceTypes = map[string]maps.AutocompletePlaceType{
	"address":      maps.AutocompletePlaceTypeAddress,
	"street":       maps.AutocompletePlaceTypeAddress,
	"poi":          maps.AutocompletePlaceTypeEstablishment,
	"place":        maps.AutocompletePlaceTypeCities,
	"locality":     maps.AutocompletePlaceTypeRegions,
	"neighborhood": maps.AutocompletePlaceTypeRegions,
	"district":     maps.AutocompletePlaceTypeRegions,
	"region":       maps.AutocompletePlaceTypeRegions,
	"postcode":     maps.AutocompletePlaceTypeRegions,
}

// autocompleteType returns the single Google collection that covers
// every requested type. Google accepts only one collection per request,
// so a mix of collections is left unrestricted.
func autocompleteType(types []string) maps.AutocompletePlaceType {
	var result maps.AutocompletePlaceType
	for _, raw := range types {
		t, ok := googlePlaceTypes[strings.ToLower(raw)]
		if !ok {
			parsed, err := maps.ParseAutocompletePlaceType(raw)
			if err != nil {
				continue
			}
			t = parsed
		}
		if result != "" && result != t {
			return ""
		}
		result = t
	}
	return result
}

func sessionToken(raw string) (maps.PlaceAutocompleteSessionToken, error) {
	if raw == "" {
		return maps.PlaceAutocompleteSessionToken(uuid.Nil), nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return maps.PlaceAutocompleteSessionToken(uuid.Nil), fmt.Errorf("invalid session token: %w", err)
	}
	return maps.PlaceAutocompleteSessionToken(parsed), nil
}

func isZeroResults(err error) bool {
	return err != nil && (errors.Is(err, ErrNoResults) || strings.Contains(err.Error(), "ZERO_RESULTS"))
}
