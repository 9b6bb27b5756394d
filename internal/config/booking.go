package config

import (
	"fmt"
	"time"
)

// BookingConfig holds the booking form policy. The defaults are the
// canonical values: 30 minute slot buffer, 1..15 passengers, 0..10 bags.
type BookingConfig struct {
	DebounceInterval time.Duration `yaml:"debounce_interval"`
	SlotInterval     time.Duration `yaml:"slot_interval"`
	SlotBuffer       time.Duration `yaml:"slot_buffer"`
	MinPassengers    int           `yaml:"min_passengers"`
	MaxPassengers    int           `yaml:"max_passengers"`
	MinLuggage       int           `yaml:"min_luggage"`
	MaxLuggage       int           `yaml:"max_luggage"`
	LocationTimeout  time.Duration `yaml:"location_timeout"`
	RouteTimeout     time.Duration `yaml:"route_timeout"`
	FormTTL          time.Duration `yaml:"form_ttl"`
	JanitorInterval  time.Duration `yaml:"janitor_interval"`
}

func loadBookingConfig() *BookingConfig {
	return &BookingConfig{
		DebounceInterval: getEnvAsDuration("BOOKING_DEBOUNCE_INTERVAL", 400*time.Millisecond),
		SlotInterval:     getEnvAsDuration("BOOKING_SLOT_INTERVAL", 30*time.Minute),
		SlotBuffer:       getEnvAsDuration("BOOKING_SLOT_BUFFER", 30*time.Minute),
		MinPassengers:    getEnvAsInt("BOOKING_MIN_PASSENGERS", 1),
		MaxPassengers:    getEnvAsInt("BOOKING_MAX_PASSENGERS", 15),
		MinLuggage:       getEnvAsInt("BOOKING_MIN_LUGGAGE", 0),
		MaxLuggage:       getEnvAsInt("BOOKING_MAX_LUGGAGE", 10),
		LocationTimeout:  getEnvAsDuration("BOOKING_LOCATION_TIMEOUT", 5*time.Second),
		RouteTimeout:     getEnvAsDuration("BOOKING_ROUTE_TIMEOUT", 15*time.Second),
		FormTTL:          getEnvAsDuration("BOOKING_FORM_TTL", 30*time.Minute),
		JanitorInterval:  getEnvAsDuration("BOOKING_JANITOR_INTERVAL", time.Minute),
	}
}

func (b *BookingConfig) Validate() error {
	if b.SlotInterval <= 0 || (24*time.Hour)%b.SlotInterval != 0 {
		return fmt.Errorf("BOOKING_SLOT_INTERVAL must divide a day evenly, got %s", b.SlotInterval)
	}
	if b.MinPassengers < 1 || b.MaxPassengers < b.MinPassengers {
		return fmt.Errorf("invalid passenger range %d..%d", b.MinPassengers, b.MaxPassengers)
	}
	if b.MinLuggage < 0 || b.MaxLuggage < b.MinLuggage {
		return fmt.Errorf("invalid luggage range %d..%d", b.MinLuggage, b.MaxLuggage)
	}
	if b.DebounceInterval < 0 || b.SlotBuffer < 0 {
		return fmt.Errorf("booking durations must not be negative")
	}
	if b.LocationTimeout <= 0 {
		return fmt.Errorf("BOOKING_LOCATION_TIMEOUT must be positive, got %s", b.LocationTimeout)
	}
	if b.RouteTimeout <= 0 {
		return fmt.Errorf("BOOKING_ROUTE_TIMEOUT must be positive, got %s", b.RouteTimeout)
	}
	return nil
}
