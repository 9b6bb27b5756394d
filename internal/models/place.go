package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrEmptyPlaceLabel    = errors.New("place label is empty")
)

// Coordinates is a WGS84 point. It is encoded longitude first, as the
// two-element array [lng, lat], which is the order the mapping providers use.
type Coordinates struct {
	Longitude float64
	Latitude  float64
}

func NewCoordinates(lng, lat float64) (Coordinates, error) {
	c := Coordinates{Longitude: lng, Latitude: lat}
	if !c.Valid() {
		return Coordinates{}, fmt.Errorf("%w: lng=%f lat=%f", ErrInvalidCoordinates, lng, lat)
	}
	return c, nil
}

func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Pair returns the coordinates in provider order.
func (c Coordinates) Pair() [2]float64 {
	return [2]float64{c.Longitude, c.Latitude}
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Pair())
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: expected [lng, lat], got %d values", ErrInvalidCoordinates, len(pair))
	}
	c.Longitude, c.Latitude = pair[0], pair[1]
	return nil
}

// Place is a resolved geographic point. There is no partially resolved
// Place: use NewPlace, which refuses an empty label or invalid coordinates.
type Place struct {
	Label       string      `json:"label"`
	Coordinates Coordinates `json:"coordinates"`
}

func NewPlace(label string, coords Coordinates) (Place, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Place{}, ErrEmptyPlaceLabel
	}
	if !coords.Valid() {
		return Place{}, fmt.Errorf("%w: lng=%f lat=%f", ErrInvalidCoordinates, coords.Longitude, coords.Latitude)
	}
	return Place{Label: label, Coordinates: coords}, nil
}

// SuggestionCandidate is an autocomplete hit. Place is only set when the
// provider already attached coordinates (Resolved); otherwise the candidate
// needs a detail lookup before it can become a Place.
type SuggestionCandidate struct {
	ID          string `json:"id"`
	DisplayText string `json:"display_text"`
	Resolved    bool   `json:"resolved"`
	Place       *Place `json:"-"`
}

// SearchSession groups the autocomplete queries of one booking form for the
// provider's session billing. The token is fixed at creation.
type SearchSession struct {
	token uuid.UUID
}

func NewSearchSession() SearchSession {
	return SearchSession{token: uuid.New()}
}

func (s SearchSession) Token() uuid.UUID {
	return s.token
}

func (s SearchSession) String() string {
	return s.token.String()
}

func (s SearchSession) IsZero() bool {
	return s.token == uuid.Nil
}
