package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/creativedesignseo/taxi-bcn/internal/models"
	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("contact_name", validateContactName)
	validate.RegisterValidation("dial_code", validateDialCode)
	validate.RegisterValidation("local_phone", validateLocalPhone)
	validate.RegisterValidation("coordinates", validateCoordinates)
	validate.RegisterValidation("schedule_date", validateScheduleDate)
	validate.RegisterValidation("schedule_time", validateScheduleTime)
}

var (
	ErrInvalidDialCode    = errors.New("invalid country dial code")
	ErrInvalidLocalPhone  = errors.New("invalid local phone number")
	ErrInvalidCoordinates = errors.New("invalid GPS coordinates")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into the field map used by the API envelope.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "request", Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range fieldErrors {
			validationError := ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			}
			validationErrors = append(validationErrors, validationError)
		}
	}

	return validationErrors
}

// ValidateContact checks the contact details collected before handoff.
func ValidateContact(contact *models.ContactInfo) error {
	if errs := ValidateStruct(contact); len(errs) > 0 {
		return errs
	}
	return nil
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "contact_name":
		return fmt.Sprintf("%s must be at least %d characters", err.Field(), utils.MinContactNameLength)
	case "dial_code":
		return "Dial code must be + followed by 1 to 4 digits"
	case "local_phone":
		return fmt.Sprintf("Phone number must be %d to %d digits", utils.MinLocalPhoneDigits, utils.MaxLocalPhoneDigits)
	case "coordinates":
		return "Invalid GPS coordinates"
	case "schedule_date":
		return "Date must use the YYYY-MM-DD format"
	case "schedule_time":
		return "Time must use the HH:MM format"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// validateContactName counts runes after trimming, so " A " is too short.
func validateContactName(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= utils.MinContactNameLength
}

func validateDialCode(fl validator.FieldLevel) bool {
	return utils.IsValidDialCode(fl.Field().String())
}

func validateLocalPhone(fl validator.FieldLevel) bool {
	return utils.IsValidLocalPhone(fl.Field().String())
}

func validateCoordinates(fl validator.FieldLevel) bool {
	coords, ok := fl.Field().Interface().([]float64)
	if !ok || len(coords) != 2 {
		return false
	}

	lng, lat := coords[0], coords[1]
	return utils.IsValidCoordinates(lat, lng)
}

var timeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func validateScheduleDate(fl validator.FieldLevel) bool {
	date := fl.Field().String()
	if date == "" {
		return true
	}
	_, ok := utils.ParseDate(date)
	return ok
}

func validateScheduleTime(fl validator.FieldLevel) bool {
	t := fl.Field().String()
	if t == "" {
		return true
	}
	return timeRegex.MatchString(t)
}

func SanitizeInput(input string) string {
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
