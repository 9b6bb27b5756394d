package config

import (
	"fmt"
	"time"
)

type MapsConfig struct {
	Provider   string            `yaml:"provider"`
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
	Mapbox     *MapboxConfig     `yaml:"mapbox"`
	Search     *SearchConfig     `yaml:"search"`
	Timeout    time.Duration     `yaml:"timeout"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
	Radius uint   `yaml:"radius"`
}

type MapboxConfig struct {
	AccessToken string `yaml:"access_token"`
	SearchAPI   string `yaml:"search_api"`
}

// SearchConfig biases and restricts autocomplete results.
type SearchConfig struct {
	ProximityLongitude float64  `yaml:"proximity_longitude"`
	ProximityLatitude  float64  `yaml:"proximity_latitude"`
	BBox               []string `yaml:"bbox"`
	Country            string   `yaml:"country"`
	Types              []string `yaml:"types"`
	Limit              int      `yaml:"limit"`
	MinQueryLength     int      `yaml:"min_query_length"`
	ReverseCacheTTL    time.Duration
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: getEnv("MAPS_PROVIDER", "mapbox"),
		GoogleMaps: &GoogleMapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
			Radius: uint(getEnvAsInt("GOOGLE_MAPS_RADIUS", 25000)),
		},
		Mapbox: &MapboxConfig{
			AccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
			SearchAPI:   getEnv("MAPBOX_SEARCH_API", "searchbox"),
		},
		Search: &SearchConfig{
			ProximityLongitude: getEnvAsFloat64("SEARCH_PROXIMITY_LNG", 2.1734),
			ProximityLatitude:  getEnvAsFloat64("SEARCH_PROXIMITY_LAT", 41.3851),
			BBox:               getEnvAsSlice("SEARCH_BBOX", []string{"1.9", "41.1", "2.3", "41.5"}),
			Country:            getEnv("SEARCH_COUNTRY", "es"),
			Types:              getEnvAsSlice("SEARCH_TYPES", []string{"address", "poi", "place"}),
			Limit:              getEnvAsInt("SEARCH_LIMIT", 5),
			MinQueryLength:     getEnvAsInt("SEARCH_MIN_QUERY_LENGTH", 3),
			ReverseCacheTTL:    getEnvAsDuration("SEARCH_REVERSE_CACHE_TTL", 24*time.Hour),
		},
		Timeout: getEnvAsDuration("MAPS_TIMEOUT", 10*time.Second),
	}
}

func (m *MapsConfig) Validate() error {
	switch m.Provider {
	case "mapbox":
		if m.Mapbox.AccessToken == "" {
			return fmt.Errorf("MAPBOX_ACCESS_TOKEN is required for the mapbox provider")
		}
	case "google":
		if m.GoogleMaps.APIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google provider")
		}
	default:
		return fmt.Errorf("unknown MAPS_PROVIDER %q", m.Provider)
	}
	if len(m.Search.BBox) != 0 && len(m.Search.BBox) != 4 {
		return fmt.Errorf("SEARCH_BBOX must have 4 values, got %d", len(m.Search.BBox))
	}
	if m.Search.MinQueryLength < 3 {
		return fmt.Errorf("SEARCH_MIN_QUERY_LENGTH must be at least 3, got %d", m.Search.MinQueryLength)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("MAPS_TIMEOUT must be positive, got %s", m.Timeout)
	}
	return nil
}
