package models

import "time"

type FieldName string

const (
	FieldOrigin      FieldName = "origin"
	FieldDestination FieldName = "destination"
)

func (f FieldName) Valid() bool {
	return f == FieldOrigin || f == FieldDestination
}

type FieldStatus string

const (
	FieldEmpty    FieldStatus = "empty"
	FieldPending  FieldStatus = "pending"
	FieldResolved FieldStatus = "resolved"
)

// FormState is the aggregate state of a booking form.
type FormState string

const (
	StateEmpty               FormState = "empty"
	StateOriginPending       FormState = "origin_pending"
	StateOriginResolved      FormState = "origin_resolved"
	StateDestinationPending  FormState = "destination_pending"
	StateDestinationResolved FormState = "destination_resolved"
	StateRouteComputing      FormState = "route_computing"
	StateRouteReady          FormState = "route_ready"
	StateSubmittable         FormState = "submittable"
)

type FieldSnapshot struct {
	Query  string      `json:"query"`
	Status FieldStatus `json:"status"`
	Place  *Place      `json:"place,omitempty"`
}

// FormSnapshot is an immutable copy of a form's state, published to clients.
type FormSnapshot struct {
	FormID         string                `json:"form_id"`
	SessionToken   string                `json:"session_token"`
	Language       string                `json:"language"`
	State          FormState             `json:"state"`
	Origin         FieldSnapshot         `json:"origin"`
	Destination    FieldSnapshot         `json:"destination"`
	ActiveField    FieldName             `json:"active_field,omitempty"`
	Suggestions    []SuggestionCandidate `json:"suggestions"`
	RouteEstimate  *RouteEstimate        `json:"route_estimate,omitempty"`
	Schedule       Schedule              `json:"schedule"`
	TimeSlots      []string              `json:"time_slots,omitempty"`
	PassengerCount int                   `json:"passenger_count"`
	LuggageCount   int                   `json:"luggage_count"`
	Submittable    bool                  `json:"submittable"`
	LocationError  string                `json:"location_error,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
