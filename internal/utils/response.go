package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON body the booking API writes.
type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Count int `json:"count,omitempty"`
}

func respond(c *gin.Context, statusCode int, response APIResponse) {
	response.Timestamp = time.Now()
	c.JSON(statusCode, response)
}

func respondError(c *gin.Context, statusCode int, apiErr *APIError) {
	respond(c, statusCode, APIResponse{Status: StatusError, Error: apiErr})
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

// SuccessResponseWithMeta is used for list payloads such as time slots.
func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	respond(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data, Meta: meta})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	respondError(c, statusCode, &APIError{Code: code, Message: message})
}

// ValidationErrorResponse reports field errors keyed by the JSON field name.
func ValidationErrorResponse(c *gin.Context, details map[string]string) {
	respondError(c, http.StatusBadRequest, &APIError{
		Code:    "VALIDATION_ERROR",
		Message: ErrValidationFailed,
		Details: details,
	})
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// FormNotFoundResponse answers requests for a form that never existed,
// was deleted or was reaped after going idle.
func FormNotFoundResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", ErrFormNotFound)
}

// BookingIncompleteResponse answers a handoff attempted before the form
// is submittable.
func BookingIncompleteResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusConflict, "BOOKING_INCOMPLETE", ErrBookingIncomplete)
}

// TooManyRequestsResponse tells the client to come back once the current
// rate limit window has passed.
func TooManyRequestsResponse(c *gin.Context, retryAfter time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", ErrTooManyRequests)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", ErrInternalServer)
}
