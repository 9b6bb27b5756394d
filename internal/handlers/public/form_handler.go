package public

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/services"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/creativedesignseo/taxi-bcn/internal/validators"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/websocket"
	"github.com/gin-gonic/gin"
)

const snapshotMessageType = "form_snapshot"

// FormRoom is the websocket room of a booking form.
func FormRoom(formID string) string {
	return "form_" + formID
}

// SnapshotPublisher pushes form snapshots to the form's websocket room.
type SnapshotPublisher struct {
	hub *websocket.Hub
}

func NewSnapshotPublisher(hub *websocket.Hub) *SnapshotPublisher {
	return &SnapshotPublisher{hub: hub}
}

func (p *SnapshotPublisher) FormChanged(snapshot models.FormSnapshot) {
	p.hub.Publish(FormRoom(snapshot.FormID), snapshotMessageType, snapshot)
}

// FormClosed disconnects the streams of a closed or reaped form.
func (p *SnapshotPublisher) FormClosed(formID string) {
	p.hub.CloseRoom(FormRoom(formID))
}

type FormHandler struct {
	forms     services.FormService
	wsHandler *websocket.Handler
	logger    *logger.Logger
}

func NewFormHandler(forms services.FormService, wsHandler *websocket.Handler, log *logger.Logger) *FormHandler {
	return &FormHandler{
		forms:     forms,
		wsHandler: wsHandler,
		logger:    log.WithField("handler", "forms"),
	}
}

type createFormRequest struct {
	Language string `json:"language"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type locationRequest struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	ErrorCode string   `json:"error_code"`
}

type scheduleRequest struct {
	Mode string `json:"mode" validate:"required,oneof=now scheduled"`
	Date string `json:"date" validate:"schedule_date"`
	Time string `json:"time" validate:"schedule_time"`
}

type countRequest struct {
	Count *int `json:"count" validate:"required"`
}

type countResponse struct {
	Count int `json:"count"`
}

type linkResponse struct {
	URL string `json:"url"`
}

type slotsResponse struct {
	Date  string   `json:"date,omitempty"`
	Slots []string `json:"slots"`
}

// bindOptionalJSON binds the body into dest, accepting an empty body.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *FormHandler) form(c *gin.Context) (*services.BookingForm, bool) {
	form, err := h.forms.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.FormIDKey, form.ID()))
	return form, true
}

// CreateForm opens a new booking form session
func (h *FormHandler) CreateForm(c *gin.Context) {
	var request createFormRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	form, err := h.forms.Create(c.Request.Context(), strings.ToLower(strings.TrimSpace(request.Language)))
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking form created", form.Snapshot())
}

func (h *FormHandler) GetForm(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Booking form retrieved", form.Snapshot())
}

// DeleteForm tears the form down; its streams are closed by the publisher
func (h *FormHandler) DeleteForm(c *gin.Context) {
	if err := h.forms.Close(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Booking form closed", nil)
}

func (h *FormHandler) Focus(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	if err := form.Focus(models.FieldName(c.Param("field"))); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Field focused", form.Snapshot())
}

// UpdateQuery records a keystroke; suggestions arrive on the stream
func (h *FormHandler) UpdateQuery(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}

	var request queryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := form.Type(models.FieldName(c.Param("field")), validators.SanitizeInput(request.Text)); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Query updated", form.Snapshot())
}

func (h *FormHandler) ClearField(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	if err := form.Clear(models.FieldName(c.Param("field"))); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Field cleared", form.Snapshot())
}

func (h *FormHandler) SelectSuggestion(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	if err := form.Select(c.Request.Context(), c.Param("candidate")); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Suggestion selected", form.Snapshot())
}

// UseCurrentLocation takes the browser's geolocation result as the origin
func (h *FormHandler) UseCurrentLocation(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}

	var request locationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	var locator services.ReportedLocator
	switch {
	case request.ErrorCode != "":
		kind, ok := services.ParsePositionErrorKind(request.ErrorCode)
		if !ok {
			utils.BadRequestResponse(c, "Unknown geolocation error code")
			return
		}
		locator.ErrorKind = kind
	case request.Longitude != nil && request.Latitude != nil:
		locator.Coordinates = &models.Coordinates{Longitude: *request.Longitude, Latitude: *request.Latitude}
	default:
		utils.BadRequestResponse(c, "Either longitude and latitude or error_code is required")
		return
	}

	if _, err := form.UseCurrentLocation(c.Request.Context(), locator); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Current location applied", form.Snapshot())
}

func (h *FormHandler) UpdateSchedule(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}

	var request scheduleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateStruct(request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	schedule := models.Immediate()
	if request.Mode == string(models.ScheduleAt) {
		schedule = models.Schedule{Mode: models.ScheduleAt, Date: request.Date, Time: request.Time}
	}
	if err := form.SetSchedule(schedule); err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Schedule updated", form.Snapshot())
}

func (h *FormHandler) GetTimeSlots(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	slots := form.TimeSlots()
	utils.SuccessResponseWithMeta(c, "Time slots retrieved", slotsResponse{
		Date:  form.Snapshot().Schedule.Date,
		Slots: slots,
	}, &utils.Meta{Count: len(slots)})
}

func (h *FormHandler) counter(c *gin.Context, apply func(form *services.BookingForm) (int, error)) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	count, err := apply(form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Counter updated", countResponse{Count: count})
}

func (h *FormHandler) bindCount(c *gin.Context) (int, bool) {
	var request countRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return 0, false
	}
	if errs := validators.ValidateStruct(request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return 0, false
	}
	return *request.Count, true
}

func (h *FormHandler) SetPassengers(c *gin.Context) {
	n, ok := h.bindCount(c)
	if !ok {
		return
	}
	h.counter(c, func(form *services.BookingForm) (int, error) { return form.SetPassengers(n) })
}

func (h *FormHandler) IncrementPassengers(c *gin.Context) {
	h.counter(c, (*services.BookingForm).IncrementPassengers)
}

func (h *FormHandler) DecrementPassengers(c *gin.Context) {
	h.counter(c, (*services.BookingForm).DecrementPassengers)
}

func (h *FormHandler) SetLuggage(c *gin.Context) {
	n, ok := h.bindCount(c)
	if !ok {
		return
	}
	h.counter(c, func(form *services.BookingForm) (int, error) { return form.SetLuggage(n) })
}

func (h *FormHandler) IncrementLuggage(c *gin.Context) {
	h.counter(c, (*services.BookingForm).IncrementLuggage)
}

func (h *FormHandler) DecrementLuggage(c *gin.Context) {
	h.counter(c, (*services.BookingForm).DecrementLuggage)
}

// Handoff validates the contact details and returns the messaging link
func (h *FormHandler) Handoff(c *gin.Context) {
	var contact models.ContactInfo
	if err := c.ShouldBindJSON(&contact); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	link, err := h.forms.Handoff(c.Request.Context(), c.Param("id"), contact)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.SuccessResponse(c, "Handoff link created", linkResponse{URL: link})
}

// Stream upgrades to a websocket that receives every snapshot of the form
func (h *FormHandler) Stream(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	client, ok := h.wsHandler.Serve(c, FormRoom(form.ID()))
	if !ok {
		return
	}
	form.WithSnapshot(func(snapshot models.FormSnapshot) {
		client.Send(snapshotMessageType, snapshot)
	})
}

// ContactLink builds the quick request link used outside the booking form
func (h *FormHandler) ContactLink(c *gin.Context) {
	link := h.forms.QuickContactLink(
		validators.SanitizeInput(c.Query("origin")),
		validators.SanitizeInput(c.Query("destination")),
		validators.SanitizeInput(c.Query("time")),
	)
	utils.SuccessResponse(c, "Contact link created", linkResponse{URL: link})
}

func (h *FormHandler) respondError(c *gin.Context, err error) {
	var validationErrs validators.ValidationErrors
	var positionErr *services.PositionError

	switch {
	case errors.As(err, &validationErrs):
		utils.ValidationErrorResponse(c, validationErrs.Details())
	case errors.As(err, &positionErr):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "LOCATION_"+strings.ToUpper(positionErr.Kind.String()), err.Error())
	case errors.Is(err, services.ErrFormNotFound), errors.Is(err, services.ErrFormClosed):
		utils.FormNotFoundResponse(c)
	case errors.Is(err, services.ErrInvalidField):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_FIELD", err.Error())
	case errors.Is(err, services.ErrUnknownCandidate):
		utils.ErrorResponse(c, http.StatusNotFound, "CANDIDATE_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrPlaceUnavailable):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PLACE_UNAVAILABLE", err.Error())
	case errors.Is(err, services.ErrInvalidDate):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_DATE", err.Error())
	case errors.Is(err, services.ErrPastDate):
		utils.ErrorResponse(c, http.StatusBadRequest, "PAST_DATE", err.Error())
	case errors.Is(err, services.ErrInvalidSlot):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_SLOT", err.Error())
	case errors.Is(err, services.ErrUnsupportedLanguage):
		utils.ErrorResponse(c, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE", err.Error())
	case errors.Is(err, services.ErrBookingIncomplete):
		utils.BookingIncompleteResponse(c)
	default:
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Unhandled form error")
		utils.InternalServerErrorResponse(c)
	}
}
