package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
)

const (
	defaultQuickOrigin      = "Mi ubicación actual"
	defaultQuickDestination = "A consultar"
	immediatePickupLabel    = "Ahora"
)

type HandoffComposer interface {
	// Compose builds the messaging deep link for a complete booking.
	Compose(booking models.BookingRequest, contact models.ContactInfo, now time.Time) (string, error)

	// QuickContactLink builds the short request link used outside the
	// booking form. Empty values fall back to generic wording.
	QuickContactLink(origin, destination, pickupTime string) string
}

type handoffComposer struct {
	messagingHost   string
	businessNumber  string
	mapLinkBaseURL  string
	defaultDialCode string
	location        *time.Location
}

func NewHandoffComposer(cfg *config.Config) HandoffComposer {
	return &handoffComposer{
		messagingHost:   cfg.Handoff.MessagingHost,
		businessNumber:  cfg.Handoff.BusinessNumber,
		mapLinkBaseURL:  cfg.Handoff.MapLinkBaseURL,
		defaultDialCode: cfg.Handoff.DefaultDialCode,
		location:        cfg.App.Location(),
	}
}

func (h *handoffComposer) Compose(booking models.BookingRequest, contact models.ContactInfo, now time.Time) (string, error) {
	if !booking.Complete() {
		return "", ErrBookingIncomplete
	}

	dialCode := contact.CountryDialCode
	if strings.TrimSpace(dialCode) == "" {
		dialCode = h.defaultDialCode
	}

	var b strings.Builder
	b.WriteString("Hola, quiero reservar un taxi:\n\n")
	fmt.Fprintf(&b, "*Hora de solicitud:* %s\n\n", now.In(h.location).Format(utils.RequestTimestampLayout))
	fmt.Fprintf(&b, "*Origen:* %s\nVer en mapa: %s\n\n", booking.Origin.Label, h.mapLink(booking.Origin.Coordinates))
	fmt.Fprintf(&b, "*Destino:* %s\nVer en mapa: %s\n\n", booking.Destination.Label, h.mapLink(booking.Destination.Coordinates))
	fmt.Fprintf(&b, "*Tiempo estimado:* %d min\n\n", booking.RouteEstimate.DurationMinutes())
	fmt.Fprintf(&b, "*Recogida:* %s\n", pickupLabel(booking.Schedule))
	fmt.Fprintf(&b, "*Pasajeros:* %d · *Maletas:* %d\n\n", booking.PassengerCount, booking.LuggageCount)
	b.WriteString("*Datos del cliente:*\n")
	fmt.Fprintf(&b, "Nombre: %s\n", strings.TrimSpace(contact.Name))
	fmt.Fprintf(&b, "Teléfono: %s", utils.ComposeFullPhone(dialCode, contact.LocalPhoneNumber))
	if email := strings.TrimSpace(contact.Email); email != "" {
		fmt.Fprintf(&b, "\nEmail: %s", email)
	}

	return h.link(b.String()), nil
}

func (h *handoffComposer) QuickContactLink(origin, destination, pickupTime string) string {
	message := fmt.Sprintf("Hola, quiero pedir un taxi.\n🚖 *Origen:* %s\n📍 *Destino:* %s\n⏰ *Hora:* %s",
		strings.TrimSpace(utils.CoalesceString(origin, defaultQuickOrigin)),
		strings.TrimSpace(utils.CoalesceString(destination, defaultQuickDestination)),
		strings.TrimSpace(utils.CoalesceString(pickupTime, immediatePickupLabel)),
	)
	return h.link(message)
}

func (h *handoffComposer) link(message string) string {
	return fmt.Sprintf("https://%s/%s?text=%s", h.messagingHost, h.businessNumber, EncodeURIComponent(message))
}

func (h *handoffComposer) mapLink(c models.Coordinates) string {
	return fmt.Sprintf("%s?q=%s,%s", h.mapLinkBaseURL, formatCoordinate(c.Latitude), formatCoordinate(c.Longitude))
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pickupLabel(s models.Schedule) string {
	if s.IsImmediate() {
		return immediatePickupLabel
	}
	date := s.Date
	if t, ok := utils.ParseDate(s.Date); ok {
		date = t.Format("02/01/2006")
	}
	return strings.TrimSpace(date + " " + s.Time)
}

var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent percent-encodes s leaving only A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ) as is. Spaces become %20.
func EncodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
