package services

import (
	"fmt"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
)

// SlotPolicy produces the pickup time slots offered for a date.
type SlotPolicy struct {
	Interval time.Duration
	Buffer   time.Duration
	Location *time.Location
}

func NewSlotPolicy(cfg *config.BookingConfig, loc *time.Location) SlotPolicy {
	if loc == nil {
		loc = time.UTC
	}
	return SlotPolicy{
		Interval: cfg.SlotInterval,
		Buffer:   cfg.SlotBuffer,
		Location: loc,
	}
}

// AllSlots lists every slot of a day as HH:MM, starting at 00:00.
func (p SlotPolicy) AllSlots() []string {
	slots := make([]string, 0, int((24*time.Hour)/p.Interval))
	for offset := time.Duration(0); offset < 24*time.Hour; offset += p.Interval {
		minutes := int(offset.Minutes())
		slots = append(slots, fmt.Sprintf("%02d:%02d", minutes/60, minutes%60))
	}
	return slots
}

// Today is the current calendar date in the policy timezone.
func (p SlotPolicy) Today(now time.Time) string {
	return now.In(p.Location).Format(models.DateLayout)
}

// IsPastDate reports whether date is before today. Malformed dates are
// reported as not past; callers validate the format first.
func (p SlotPolicy) IsPastDate(date string, now time.Time) bool {
	if _, ok := utils.ParseDate(date); !ok {
		return false
	}
	// YYYY-MM-DD compares lexically in calendar order.
	return date < p.Today(now)
}

// Slots returns the slots selectable for date. A past date has none; today
// keeps only slots strictly later than now plus the buffer; any other date,
// or no date yet, gets the whole day.
func (p SlotPolicy) Slots(date string, now time.Time) []string {
	all := p.AllSlots()
	if date == "" {
		return all
	}
	if p.IsPastDate(date, now) {
		return nil
	}
	if date != p.Today(now) {
		return all
	}

	day, err := time.ParseInLocation(models.DateLayout, date, p.Location)
	if err != nil {
		return all
	}
	earliest := now.Add(p.Buffer)

	available := make([]string, 0, len(all))
	for _, slot := range all {
		t, err := time.Parse(models.TimeLayout, slot)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, p.Location)
		if at.After(earliest) {
			available = append(available, slot)
		}
	}
	return available
}

// IsValidSlot reports whether slot is selectable for date right now.
func (p SlotPolicy) IsValidSlot(date, slot string, now time.Time) bool {
	return utils.Contains(p.Slots(date, now), slot)
}
