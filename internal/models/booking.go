package models

import "time"

type ScheduleMode string

const (
	ScheduleImmediate ScheduleMode = "now"
	ScheduleAt        ScheduleMode = "scheduled"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Schedule is either Immediate or ScheduledAt(date, time). While the form
// is being filled, Date and Time may be empty for a scheduled pickup.
type Schedule struct {
	Mode ScheduleMode `json:"mode"`
	Date string       `json:"date,omitempty"`
	Time string       `json:"time,omitempty"`
}

func Immediate() Schedule {
	return Schedule{Mode: ScheduleImmediate}
}

func (s Schedule) IsImmediate() bool {
	return s.Mode != ScheduleAt
}

// PickupTime combines Date and Time in loc. ok is false for an immediate or
// incomplete schedule.
func (s Schedule) PickupTime(loc *time.Location) (t time.Time, ok bool) {
	if s.IsImmediate() || s.Date == "" || s.Time == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BookingRequest is the trip request assembled by a booking form.
type BookingRequest struct {
	Origin         *Place         `json:"origin,omitempty"`
	Destination    *Place         `json:"destination,omitempty"`
	Schedule       Schedule       `json:"schedule"`
	PassengerCount int            `json:"passenger_count"`
	LuggageCount   int            `json:"luggage_count"`
	RouteEstimate  *RouteEstimate `json:"route_estimate,omitempty"`
}

// Complete reports whether the request carries both endpoints and a route.
// Schedule validity depends on the clock and is checked by the form.
func (b BookingRequest) Complete() bool {
	return b.Origin != nil && b.Destination != nil && b.RouteEstimate != nil
}

// ContactInfo is collected when the booking is handed off to an operator.
type ContactInfo struct {
	Name             string `json:"name" validate:"required,contact_name"`
	CountryDialCode  string `json:"country_dial_code" validate:"omitempty,dial_code"`
	LocalPhoneNumber string `json:"local_phone_number" validate:"required,local_phone"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
}
