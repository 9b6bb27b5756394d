package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapbox(t *testing.T, searchAPI string, handler http.HandlerFunc) *MapboxProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewMapboxProvider(MapboxConfig{
		AccessToken: "test-token",
		BaseURL:     server.URL,
		SearchAPI:   searchAPI,
	})
}

func TestMapboxSuggestSearchBoxSendsSessionAndFilters(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/searchbox/v1/suggest", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "sagrada", q.Get("q"))
		assert.Equal(t, "session-1", q.Get("session_token"))
		assert.Equal(t, "2.173400,41.385100", q.Get("proximity"))
		assert.Equal(t, "1.9,41.1,2.3,41.5", q.Get("bbox"))
		assert.Equal(t, "es", q.Get("country"))
		assert.Equal(t, "es", q.Get("language"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "test-token", q.Get("access_token"))

		w.Write([]byte(`{"suggestions":[
			{"mapbox_id":"abc","name":"Sagrada Família","full_address":"C/ de Mallorca, 401, Barcelona"},
			{"mapbox_id":"def","name":"Sagrada","place_formatted":"Barcelona, España"}
		]}`))
	})

	suggestions, err := provider.Suggest(context.Background(), &SuggestRequest{
		Query:        "sagrada",
		SessionToken: "session-1",
		Proximity:    &Location{Longitude: 2.1734, Latitude: 41.3851},
		BBox:         &BoundingBox{MinLongitude: 1.9, MinLatitude: 41.1, MaxLongitude: 2.3, MaxLatitude: 41.5},
		Country:      "es",
		Language:     "es",
		Limit:        5,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "abc", suggestions[0].ID)
	assert.Equal(t, "C/ de Mallorca, 401, Barcelona", suggestions[0].DisplayText())
	assert.Nil(t, suggestions[0].Location)
	assert.Equal(t, "Sagrada, Barcelona, España", suggestions[1].Address)
}

func TestMapboxSuggestGeocodingReturnsResolvedCandidates(t *testing.T) {
	provider := newTestMapbox(t, MapboxGeocoding, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/Plaça Catalunya.json", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("session_token"))
		w.Write([]byte(`{"features":[{"id":"place.1","text":"Plaça de Catalunya","place_name":"Plaça de Catalunya, Barcelona","center":[2.1700,41.3870]}]}`))
	})

	suggestions, err := provider.Suggest(context.Background(), &SuggestRequest{Query: "Plaça Catalunya"})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.NotNil(t, suggestions[0].Location)
	assert.Equal(t, 2.17, suggestions[0].Location.Longitude)
	assert.Equal(t, 41.387, suggestions[0].Location.Latitude)
}

func TestMapboxRetrieveKeepsLongitudeFirst(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/searchbox/v1/retrieve/abc", r.URL.Path)
		assert.Equal(t, "session-1", r.URL.Query().Get("session_token"))
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[2.1744,41.4036]},
			"properties":{"mapbox_id":"abc","name":"Sagrada Família","full_address":"C/ de Mallorca, 401, Barcelona"}}]}`))
	})

	feature, err := provider.Retrieve(context.Background(), &RetrieveRequest{ID: "abc", SessionToken: "session-1"})
	require.NoError(t, err)
	assert.Equal(t, 2.1744, feature.Location.Longitude)
	assert.Equal(t, 41.4036, feature.Location.Latitude)
	assert.Equal(t, "C/ de Mallorca, 401, Barcelona", feature.Label())
}

func TestMapboxRetrieveWithoutFeatures(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	})

	_, err := provider.Retrieve(context.Background(), &RetrieveRequest{ID: "abc"})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestMapboxReverseGeocode(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/2.173400,41.385100.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"features":[{"id":"address.1","text":"La Rambla","place_name":"La Rambla 1, Barcelona","center":[2.1734,41.3851]}]}`))
	})

	feature, err := provider.ReverseGeocode(context.Background(), &ReverseGeocodeRequest{
		Location: Location{Longitude: 2.1734, Latitude: 41.3851},
		Language: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "La Rambla 1, Barcelona", feature.Label())
}

func TestMapboxDirections(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/v5/mapbox/driving/2.173400,41.385100;2.150000,41.400000", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "full", q.Get("overview"))
		assert.Equal(t, "geojson", q.Get("geometries"))
		assert.Equal(t, "false", q.Get("alternatives"))
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":2850.5,"duration":611.2,
			"geometry":{"type":"LineString","coordinates":[[2.1734,41.3851],[2.16,41.39],[2.15,41.4]]}}]}`))
	})

	resp, err := provider.GetDirections(context.Background(), &DirectionsRequest{
		Origin:      Location{Longitude: 2.1734, Latitude: 41.3851},
		Destination: Location{Longitude: 2.15, Latitude: 41.4},
	})
	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, 2850.5, resp.Routes[0].Distance)
	assert.Equal(t, 611.2, resp.Routes[0].Duration)
	require.Len(t, resp.Routes[0].Geometry, 3)
	assert.Equal(t, Location{Longitude: 2.15, Latitude: 41.4}, resp.Routes[0].Geometry[2])
}

func TestMapboxDirectionsNoRoute(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	})

	_, err := provider.GetDirections(context.Background(), &DirectionsRequest{})
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestMapboxAPIError(t *testing.T) {
	provider := newTestMapbox(t, MapboxSearchBox, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
	})

	_, err := provider.Suggest(context.Background(), &SuggestRequest{Query: "sants"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestMapboxTransportErrorHidesAccessToken(t *testing.T) {
	provider := NewMapboxProvider(MapboxConfig{
		AccessToken: "pk.SECRET",
		BaseURL:     "http://127.0.0.1:1",
		SearchAPI:   MapboxSearchBox,
		Timeout:     time.Second,
	})

	_, err := provider.Suggest(context.Background(), &SuggestRequest{Query: "sagrada", SessionToken: "session-1"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "pk.SECRET")
	assert.NotContains(t, err.Error(), "access_token")
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
