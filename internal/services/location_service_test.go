package services

import (
	"context"
	"errors"
	"testing"

	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	<-ctx.Done()
	return models.Coordinates{}, ctx.Err()
}

type stuckLocator struct{ release chan struct{} }

func (l stuckLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	<-l.release
	return models.Coordinates{Longitude: 2.17, Latitude: 41.38}, nil
}

type failingLocator struct{ err error }

func (l failingLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	return models.Coordinates{}, l.err
}

func newTestLocationService(provider *fakeProvider) LocationService {
	return NewLocationService(testConfig(), provider, cache.NewMemoryCache(), logger.NewNop())
}

func TestGetCurrentPosition(t *testing.T) {
	service := newTestLocationService(newFakeProvider())
	ctx := context.Background()

	t.Run("reported coordinates", func(t *testing.T) {
		coords := models.Coordinates{Longitude: 2.1734, Latitude: 41.3851}
		got, err := service.GetCurrentPosition(ctx, ReportedLocator{Coordinates: &coords})
		require.NoError(t, err)
		assert.Equal(t, coords, got)
	})

	t.Run("permission denied", func(t *testing.T) {
		_, err := service.GetCurrentPosition(ctx, ReportedLocator{ErrorKind: PermissionDenied})
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.NotErrorIs(t, err, ErrTimeout)

		var positionErr *PositionError
		require.ErrorAs(t, err, &positionErr)
		assert.Equal(t, PermissionDenied, positionErr.Kind)
	})

	t.Run("invalid coordinates are unavailable", func(t *testing.T) {
		coords := models.Coordinates{Longitude: 2.17, Latitude: 123}
		_, err := service.GetCurrentPosition(ctx, ReportedLocator{Coordinates: &coords})
		assert.ErrorIs(t, err, ErrPositionUnavailable)
	})

	t.Run("empty report is unavailable", func(t *testing.T) {
		_, err := service.GetCurrentPosition(ctx, ReportedLocator{})
		assert.ErrorIs(t, err, ErrPositionUnavailable)
	})

	t.Run("plain errors are unavailable", func(t *testing.T) {
		_, err := service.GetCurrentPosition(ctx, failingLocator{err: errors.New("no gps")})
		assert.ErrorIs(t, err, ErrPositionUnavailable)
	})

	t.Run("locator honouring the deadline times out", func(t *testing.T) {
		_, err := service.GetCurrentPosition(ctx, blockingLocator{})
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("locator ignoring the deadline times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		_, err := service.GetCurrentPosition(ctx, stuckLocator{release: release})
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestParsePositionErrorKind(t *testing.T) {
	kind, ok := ParsePositionErrorKind("1")
	assert.True(t, ok)
	assert.Equal(t, PermissionDenied, kind)

	kind, ok = ParsePositionErrorKind("TIMEOUT")
	assert.True(t, ok)
	assert.Equal(t, Timeout, kind)

	_, ok = ParsePositionErrorKind("4")
	assert.False(t, ok)
}

func TestReverseGeocodeIsCached(t *testing.T) {
	provider := newFakeProvider()
	service := newTestLocationService(provider)
	ctx := context.Background()

	coords := models.Coordinates{Longitude: 2.17343, Latitude: 41.38512}
	first := service.ReverseGeocode(ctx, coords, "es")
	require.NotNil(t, first)
	assert.Equal(t, "Carrer de Pelai 1, Barcelona", first.Label)
	assert.Equal(t, coords, first.Coordinates)

	nearby := models.Coordinates{Longitude: 2.17341, Latitude: 41.38514}
	second := service.ReverseGeocode(ctx, nearby, "es")
	require.NotNil(t, second)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, nearby, second.Coordinates)
	assert.Equal(t, 1, provider.count("reverse"))

	service.ReverseGeocode(ctx, coords, "en")
	assert.Equal(t, 2, provider.count("reverse"), "cache is per language")
}

func TestLocationServiceZeroTimeoutsDoNotExpire(t *testing.T) {
	cfg := testConfig()
	cfg.Booking.LocationTimeout = 0
	cfg.Maps.Timeout = 0
	service := NewLocationService(cfg, newFakeProvider(), cache.NewMemoryCache(), logger.NewNop())
	ctx := context.Background()

	coords := models.Coordinates{Longitude: 2.1734, Latitude: 41.3851}
	got, err := service.GetCurrentPosition(ctx, ReportedLocator{Coordinates: &coords})
	require.NoError(t, err)
	assert.Equal(t, coords, got)

	place := service.ReverseGeocode(ctx, coords, "es")
	require.NotNil(t, place)
	assert.Equal(t, "Carrer de Pelai 1, Barcelona", place.Label)
}

func TestResolveCurrentPlaceFallsBackToCoordinates(t *testing.T) {
	provider := newFakeProvider()
	provider.reverseFn = func(req *maps.ReverseGeocodeRequest) (*maps.Feature, error) {
		return nil, maps.ErrNoResults
	}
	service := newTestLocationService(provider)

	coords := models.Coordinates{Longitude: 2.17343, Latitude: 41.38512}
	place, err := service.ResolveCurrentPlace(context.Background(), ReportedLocator{Coordinates: &coords}, "es")
	require.NoError(t, err)
	assert.Equal(t, "41.3851, 2.1734", place.Label)
	assert.Equal(t, coords, place.Coordinates)
}

func TestResolveCurrentPlaceReturnsPositionError(t *testing.T) {
	provider := newFakeProvider()
	service := newTestLocationService(provider)

	_, err := service.ResolveCurrentPlace(context.Background(), ReportedLocator{ErrorKind: PositionUnavailable}, "es")
	assert.ErrorIs(t, err, ErrPositionUnavailable)
	assert.Equal(t, 0, provider.count("reverse"))
}
