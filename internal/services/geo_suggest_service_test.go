package services

import (
	"context"
	"testing"

	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeoSuggest(t *testing.T, provider *fakeProvider) GeoSuggestService {
	t.Helper()
	service, err := NewGeoSuggestService(testConfig(), provider, logger.NewNop())
	require.NoError(t, err)
	return service
}

func TestSuggestShortQuerySkipsProvider(t *testing.T) {
	provider := newFakeProvider()
	service := newTestGeoSuggest(t, provider)

	for _, query := range []string{"", "a", "Pl", "Ça"} {
		got := service.Suggest(context.Background(), query, models.NewSearchSession(), "")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, provider.count("suggest"))
}

func TestSuggestSendsBiasAndSession(t *testing.T) {
	provider := newFakeProvider()
	service := newTestGeoSuggest(t, provider)
	session := models.NewSearchSession()

	got := service.Suggest(context.Background(), "Sagrada", session, "")
	require.Len(t, got, 1)
	assert.Equal(t, "sb.Sagrada", got[0].ID)
	assert.Equal(t, "Sagrada, Barcelona", got[0].DisplayText)
	assert.False(t, got[0].Resolved)
	assert.Nil(t, got[0].Place)

	req := provider.lastSuggest
	require.NotNil(t, req)
	assert.Equal(t, "Sagrada", req.Query)
	assert.Equal(t, session.String(), req.SessionToken)
	assert.Equal(t, &maps.Location{Longitude: 2.1734, Latitude: 41.3851}, req.Proximity)
	assert.Equal(t, "1.9,41.1,2.3,41.5", req.BBox.String())
	assert.Equal(t, "es", req.Country)
	assert.Equal(t, "es", req.Language)
	assert.Equal(t, 5, req.Limit)

	service.Suggest(context.Background(), "Sagrada", session, "en")
	assert.Equal(t, "en", provider.lastSuggest.Language)
	assert.Equal(t, session.String(), provider.lastSuggest.SessionToken)
}

func TestSuggestResolvedCandidates(t *testing.T) {
	provider := newFakeProvider()
	provider.suggestFn = func(req *maps.SuggestRequest) ([]maps.Suggestion, error) {
		return []maps.Suggestion{
			{ID: "poi.1", Name: "Camp Nou", Address: "Camp Nou, Barcelona", Location: &maps.Location{Longitude: 2.1228, Latitude: 41.3809}},
			{ID: "poi.2", Name: "Broken", Location: &maps.Location{Longitude: 300, Latitude: 41}},
			{Name: "No id and no coordinates"},
		}, nil
	}
	service := newTestGeoSuggest(t, provider)

	got := service.Suggest(context.Background(), "Camp", models.NewSearchSession(), "")
	require.Len(t, got, 2)

	assert.True(t, got[0].Resolved)
	require.NotNil(t, got[0].Place)
	assert.Equal(t, "Camp Nou, Barcelona", got[0].Place.Label)
	assert.Equal(t, [2]float64{2.1228, 41.3809}, got[0].Place.Coordinates.Pair())

	assert.False(t, got[1].Resolved, "invalid coordinates need a retrieve")
}

func TestSuggestProviderErrorYieldsEmptyList(t *testing.T) {
	provider := newFakeProvider()
	provider.suggestFn = func(req *maps.SuggestRequest) ([]maps.Suggestion, error) {
		return nil, errProviderDown
	}
	service := newTestGeoSuggest(t, provider)

	got := service.Suggest(context.Background(), "Sants", models.NewSearchSession(), "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, provider.count("suggest"))
}

func TestRetrieveDetails(t *testing.T) {
	provider := newFakeProvider()
	service := newTestGeoSuggest(t, provider)
	session := models.NewSearchSession()

	place := service.RetrieveDetails(context.Background(), "sb.Sants", session, "")
	require.NotNil(t, place)
	assert.Equal(t, "Sants, Barcelona", place.Label)
	assert.Equal(t, session.String(), provider.lastRetrieve.SessionToken)

	provider.retrieveFn = func(req *maps.RetrieveRequest) (*maps.Feature, error) {
		return nil, errProviderDown
	}
	assert.Nil(t, service.RetrieveDetails(context.Background(), "sb.Sants", session, ""))

	provider.retrieveFn = func(req *maps.RetrieveRequest) (*maps.Feature, error) {
		return &maps.Feature{Name: "Nowhere", Location: maps.Location{Latitude: 95}}, nil
	}
	assert.Nil(t, service.RetrieveDetails(context.Background(), "sb.Sants", session, ""))
}
