package utils

import "time"

// RequestTimestampLayout renders like the es-ES locale with 2-digit day,
// month and 24h clock: "15/10/2026, 19:40".
const RequestTimestampLayout = "02/01/2006, 15:04"

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(date string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
