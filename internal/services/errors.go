package services

import "errors"

var (
	ErrFormNotFound        = errors.New("booking form not found")
	ErrFormClosed          = errors.New("booking form is closed")
	ErrInvalidField        = errors.New("invalid form field")
	ErrUnknownCandidate    = errors.New("unknown suggestion candidate")
	ErrPlaceUnavailable    = errors.New("place details unavailable")
	ErrInvalidDate         = errors.New("invalid pickup date")
	ErrPastDate            = errors.New("pickup date is in the past")
	ErrInvalidSlot         = errors.New("pickup time is not an available slot")
	ErrBookingIncomplete   = errors.New("booking is incomplete")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
