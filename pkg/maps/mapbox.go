package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	MapboxSearchBox = "searchbox"
	MapboxGeocoding = "geocoding"

	defaultMapboxBaseURL = "https://api.mapbox.com"
)

type MapboxConfig struct {
	AccessToken string
	BaseURL     string
	// SearchAPI selects the autocomplete backend. The Search Box API bills
	// per session and returns suggestions that need a retrieve call; the
	// Geocoding API returns coordinates directly.
	SearchAPI string
	Timeout   time.Duration
}

type MapboxProvider struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
	searchAPI   string
}

func NewMapboxProvider(config MapboxConfig) *MapboxProvider {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultMapboxBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	searchAPI := config.SearchAPI
	if searchAPI != MapboxGeocoding {
		searchAPI = MapboxSearchBox
	}

	return &MapboxProvider{
		accessToken: config.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		searchAPI:   searchAPI,
	}
}

func (m *MapboxProvider) Name() string {
	return "mapbox"
}

type mapboxGeocodingResponse struct {
	Features []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func (r *mapboxGeocodingResponse) suggestions() []Suggestion {
	suggestions := make([]Suggestion, 0, len(r.Features))
	for _, feature := range r.Features {
		s := Suggestion{
			ID:      feature.ID,
			Name:    feature.Text,
			Address: feature.PlaceName,
		}
		if len(feature.Center) == 2 {
			s.Location = &Location{Longitude: feature.Center[0], Latitude: feature.Center[1]}
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

type mapboxSearchBoxFeatureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			MapboxID       string `json:"mapbox_id"`
			Name           string `json:"name"`
			FullAddress    string `json:"full_address"`
			PlaceFormatted string `json:"place_formatted"`
		} `json:"properties"`
	} `json:"features"`
}

func (m *MapboxProvider) Suggest(ctx context.Context, request *SuggestRequest) ([]Suggestion, error) {
	if m.searchAPI == MapboxGeocoding {
		return m.suggestGeocoding(ctx, request)
	}

	params := url.Values{}
	params.Set("q", request.Query)
	params.Set("session_token", request.SessionToken)
	applySuggestFilters(params, request)

	var searchResp struct {
		Suggestions []struct {
			MapboxID       string `json:"mapbox_id"`
			Name           string `json:"name"`
			FullAddress    string `json:"full_address"`
			PlaceFormatted string `json:"place_formatted"`
		} `json:"suggestions"`
	}
	if err := m.get(ctx, "/search/searchbox/v1/suggest", params, &searchResp); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(searchResp.Suggestions))
	for _, s := range searchResp.Suggestions {
		address := s.FullAddress
		if address == "" && s.PlaceFormatted != "" {
			address = s.Name + ", " + s.PlaceFormatted
		}
		suggestions = append(suggestions, Suggestion{
			ID:      s.MapboxID,
			Name:    s.Name,
			Address: address,
		})
	}

	return suggestions, nil
}

func (m *MapboxProvider) suggestGeocoding(ctx context.Context, request *SuggestRequest) ([]Suggestion, error) {
	params := url.Values{}
	applySuggestFilters(params, request)

	var geocodingResp mapboxGeocodingResponse
	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(request.Query) + ".json"
	if err := m.get(ctx, path, params, &geocodingResp); err != nil {
		return nil, err
	}

	return geocodingResp.suggestions(), nil
}

func applySuggestFilters(params url.Values, request *SuggestRequest) {
	if request.Proximity != nil {
		params.Set("proximity", request.Proximity.LngLat())
	}
	if request.BBox != nil && !request.BBox.IsZero() {
		params.Set("bbox", request.BBox.String())
	}
	if request.Country != "" {
		params.Set("country", request.Country)
	}
	if request.Language != "" {
		params.Set("language", request.Language)
	}
	if len(request.Types) > 0 {
		params.Set("types", strings.Join(request.Types, ","))
	}
	if request.Limit > 0 {
		params.Set("limit", strconv.Itoa(request.Limit))
	}
}

func (m *MapboxProvider) Retrieve(ctx context.Context, request *RetrieveRequest) (*Feature, error) {
	params := url.Values{}
	params.Set("session_token", request.SessionToken)
	if request.Language != "" {
		params.Set("language", request.Language)
	}

	var collection mapboxSearchBoxFeatureCollection
	path := "/search/searchbox/v1/retrieve/" + url.PathEscape(request.ID)
	if err := m.get(ctx, path, params, &collection); err != nil {
		return nil, err
	}

	if len(collection.Features) == 0 || len(collection.Features[0].Geometry.Coordinates) != 2 {
		return nil, ErrNoResults
	}

	feature := collection.Features[0]
	address := feature.Properties.FullAddress
	if address == "" && feature.Properties.PlaceFormatted != "" {
		address = feature.Properties.Name + ", " + feature.Properties.PlaceFormatted
	}

	return &Feature{
		ID:      feature.Properties.MapboxID,
		Name:    feature.Properties.Name,
		Address: address,
		Location: Location{
			Longitude: feature.Geometry.Coordinates[0],
			Latitude:  feature.Geometry.Coordinates[1],
		},
	}, nil
}

func (m *MapboxProvider) ReverseGeocode(ctx context.Context, request *ReverseGeocodeRequest) (*Feature, error) {
	params := url.Values{}
	params.Set("limit", "1")
	if request.Language != "" {
		params.Set("language", request.Language)
	}

	var geocodingResp mapboxGeocodingResponse
	path := "/geocoding/v5/mapbox.places/" + request.Location.LngLat() + ".json"
	if err := m.get(ctx, path, params, &geocodingResp); err != nil {
		return nil, err
	}

	suggestions := geocodingResp.suggestions()
	if len(suggestions) == 0 || suggestions[0].Location == nil {
		return nil, ErrNoResults
	}

	return &Feature{
		ID:       suggestions[0].ID,
		Name:     suggestions[0].Name,
		Address:  suggestions[0].Address,
		Location: *suggestions[0].Location,
	}, nil
}

func (m *MapboxProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	profile := "driving"
	if request.Mode != "" {
		profile = request.Mode
	}

	params := url.Values{}
	params.Set("alternatives", "false")
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("steps", "false")
	if request.Language != "" {
		params.Set("language", request.Language)
	}

	coordinates := request.Origin.LngLat() + ";" + request.Destination.LngLat()
	path := fmt.Sprintf("/directions/v5/mapbox/%s/%s", profile, coordinates)

	var mapboxResp struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := m.get(ctx, path, params, &mapboxResp); err != nil {
		return nil, err
	}

	if mapboxResp.Code != "" && mapboxResp.Code != "Ok" {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, mapboxResp.Code)
	}
	if len(mapboxResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	routes := make([]Route, len(mapboxResp.Routes))
	for i, route := range mapboxResp.Routes {
		geometry := make([]Location, 0, len(route.Geometry.Coordinates))
		for _, point := range route.Geometry.Coordinates {
			if len(point) < 2 {
				continue
			}
			geometry = append(geometry, Location{Longitude: point[0], Latitude: point[1]})
		}

		routes[i] = Route{
			Distance: route.Distance,
			Duration: route.Duration,
			Geometry: geometry,
		}
	}

	return &DirectionsResponse{Routes: routes}, nil
}

func (m *MapboxProvider) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	params.Set("access_token", m.accessToken)
	apiURL := m.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", redactURL(err, m.baseURL+path))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", redactURL(err, m.baseURL+path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: "Mapbox", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// redactURL strips the query, and with it the access token, from the URL
// carried by transport errors so it never reaches logs or callers.
func redactURL(err error, safe string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: safe, Err: urlErr.Err}
	}
	return err
}
