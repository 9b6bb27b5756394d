package utils

import "time"

// Application Constants
const (
	AppName    = "TaxiBCN"
	AppVersion = "1.0.0"

	// Configuration defaults
	DefaultLanguage    = "es"
	DefaultCountryCode = "+34"
	DefaultTimeZone    = "Europe/Madrid"

	// Contact
	MinContactNameLength = 2
	MinLocalPhoneDigits  = 6
	MaxLocalPhoneDigits  = 15

	// Coordinates
	CoordinateLabelPrecision = 4

	// Rate Limiting
	DefaultRateLimit  = 120
	RateLimitWindow   = time.Minute
	RequestIDHeader   = "X-Request-ID"
	RequestIDMaxBytes = 64
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer    = "internal server error"
	ErrValidationFailed  = "validation failed"
	ErrTooManyRequests   = "too many requests"
	ErrFormNotFound      = "booking form not found"
	ErrBookingIncomplete = "booking is not ready to be submitted"
)
