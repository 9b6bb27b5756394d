package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/utils"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Log       *LogConfig       `yaml:"log"`
	Redis     *RedisConfig     `yaml:"redis"`
	Maps      *MapsConfig      `yaml:"maps"`
	Booking   *BookingConfig   `yaml:"booking"`
	Handoff   *HandoffConfig   `yaml:"handoff"`
	Security  *SecurityConfig  `yaml:"security"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
}

type AppConfig struct {
	Name               string        `yaml:"name"`
	Version            string        `yaml:"version"`
	Environment        string        `yaml:"environment"`
	Port               int           `yaml:"port"`
	Host               string        `yaml:"host"`
	Timezone           string        `yaml:"timezone"`
	DefaultLanguage    string        `yaml:"default_language"`
	SupportedLanguages []string      `yaml:"supported_languages"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Caller bool   `yaml:"caller"`
}

type SecurityConfig struct {
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

func Load() (*Config, error) {
	config := &Config{
		App:       loadAppConfig(),
		Log:       loadLogConfig(),
		Redis:     loadRedisConfig(),
		Maps:      loadMapsConfig(),
		Booking:   loadBookingConfig(),
		Handoff:   loadHandoffConfig(),
		Security:  loadSecurityConfig(),
		WebSocket: loadWebSocketConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if !c.App.Supports(c.App.DefaultLanguage) {
		return fmt.Errorf("default language %q is not in SUPPORTED_LANGUAGES", c.App.DefaultLanguage)
	}
	if err := c.Maps.Validate(); err != nil {
		return err
	}
	if err := c.Booking.Validate(); err != nil {
		return err
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongTimeout {
		return fmt.Errorf("WEBSOCKET_PING_INTERVAL must be shorter than WEBSOCKET_PONG_TIMEOUT")
	}
	if c.Handoff.BusinessNumber == "" {
		return fmt.Errorf("HANDOFF_BUSINESS_NUMBER is required")
	}
	return nil
}

// Location returns the timezone bookings are scheduled in.
func (a *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (a *AppConfig) Supports(language string) bool {
	for _, supported := range a.SupportedLanguages {
		if supported == language {
			return true
		}
	}
	return false
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:               getEnv("APP_NAME", utils.AppName),
		Version:            getEnv("APP_VERSION", utils.AppVersion),
		Environment:        getEnv("APP_ENV", "development"),
		Port:               getEnvAsInt("APP_PORT", 8080),
		Host:               getEnv("APP_HOST", "0.0.0.0"),
		Timezone:           getEnv("APP_TIMEZONE", utils.DefaultTimeZone),
		DefaultLanguage:    getEnv("APP_LANGUAGE", utils.DefaultLanguage),
		SupportedLanguages: getEnvAsSlice("SUPPORTED_LANGUAGES", []string{"es", "en"}),
		ShutdownTimeout:    getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		Output: getEnv("LOG_OUTPUT", "stdout"),
		Caller: getEnvAsBool("LOG_CALLER", false),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", utils.DefaultRateLimit),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		return result
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}
