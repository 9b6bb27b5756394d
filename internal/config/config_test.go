package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mapbox", cfg.Maps.Provider)
	assert.Equal(t, 400*time.Millisecond, cfg.Booking.DebounceInterval)
	assert.Equal(t, 30*time.Minute, cfg.Booking.SlotBuffer)
	assert.Equal(t, 15, cfg.Booking.MaxPassengers)
	assert.Equal(t, 10, cfg.Booking.MaxLuggage)
	assert.Equal(t, "34625030000", cfg.Handoff.BusinessNumber)
	assert.Equal(t, []string{"es", "en"}, cfg.App.SupportedLanguages)
	assert.Equal(t, "Europe/Madrid", cfg.App.Location().String())
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 32, cfg.WebSocket.SendBufferSize)
}

func TestLoadRequiresProviderCredentials(t *testing.T) {
	t.Setenv("MAPS_PROVIDER", "google")
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "GOOGLE_MAPS_API_KEY")
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")

	t.Run("slot interval", func(t *testing.T) {
		t.Setenv("BOOKING_SLOT_INTERVAL", "7m")
		_, err := Load()
		assert.ErrorContains(t, err, "BOOKING_SLOT_INTERVAL")
	})

	t.Run("passenger range", func(t *testing.T) {
		t.Setenv("BOOKING_MAX_PASSENGERS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "passenger range")
	})

	t.Run("websocket keepalive", func(t *testing.T) {
		t.Setenv("WEBSOCKET_PING_INTERVAL", "90s")
		_, err := Load()
		assert.ErrorContains(t, err, "WEBSOCKET_PING_INTERVAL")
	})

	t.Run("short min query length", func(t *testing.T) {
		t.Setenv("SEARCH_MIN_QUERY_LENGTH", "2")
		_, err := Load()
		assert.ErrorContains(t, err, "SEARCH_MIN_QUERY_LENGTH")
	})

	t.Run("zero maps timeout", func(t *testing.T) {
		t.Setenv("MAPS_TIMEOUT", "0s")
		_, err := Load()
		assert.ErrorContains(t, err, "MAPS_TIMEOUT")
	})

	t.Run("zero location timeout", func(t *testing.T) {
		t.Setenv("BOOKING_LOCATION_TIMEOUT", "0s")
		_, err := Load()
		assert.ErrorContains(t, err, "BOOKING_LOCATION_TIMEOUT")
	})

	t.Run("zero route timeout", func(t *testing.T) {
		t.Setenv("BOOKING_ROUTE_TIMEOUT", "0s")
		_, err := Load()
		assert.ErrorContains(t, err, "BOOKING_ROUTE_TIMEOUT")
	})

	t.Run("default language", func(t *testing.T) {
		t.Setenv("APP_LANGUAGE", "fr")
		_, err := Load()
		assert.ErrorContains(t, err, "default language")
	})
}

func TestGetEnvAsSliceTrims(t *testing.T) {
	t.Setenv("SOME_LIST", " es, en ,,ca")
	assert.Equal(t, []string{"es", "en", "ca"}, getEnvAsSlice("SOME_LIST", nil))
}
