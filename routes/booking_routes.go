package routes

import (
	"github.com/creativedesignseo/taxi-bcn/internal/handlers/public"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes sets up routes for the booking form
func SetupBookingRoutes(r *gin.RouterGroup, formHandler *public.FormHandler) {
	forms := r.Group("/forms")
	{
		// Form lifecycle
		forms.POST("", formHandler.CreateForm)
		forms.GET("/:id", formHandler.GetForm)
		forms.DELETE("/:id", formHandler.DeleteForm)
		forms.GET("/:id/ws", formHandler.Stream)

		// Address fields
		forms.POST("/:id/fields/:field/focus", formHandler.Focus)
		forms.PUT("/:id/fields/:field/query", formHandler.UpdateQuery)
		forms.DELETE("/:id/fields/:field", formHandler.ClearField)
		forms.POST("/:id/suggestions/:candidate/select", formHandler.SelectSuggestion)
		forms.POST("/:id/location", formHandler.UseCurrentLocation)

		// Schedule
		forms.PUT("/:id/schedule", formHandler.UpdateSchedule)
		forms.GET("/:id/slots", formHandler.GetTimeSlots)

		// Counters
		forms.PUT("/:id/passengers", formHandler.SetPassengers)
		forms.POST("/:id/passengers/increment", formHandler.IncrementPassengers)
		forms.POST("/:id/passengers/decrement", formHandler.DecrementPassengers)
		forms.PUT("/:id/luggage", formHandler.SetLuggage)
		forms.POST("/:id/luggage/increment", formHandler.IncrementLuggage)
		forms.POST("/:id/luggage/decrement", formHandler.DecrementLuggage)

		forms.POST("/:id/handoff", formHandler.Handoff)
	}

	r.GET("/contact-link", formHandler.ContactLink)
}
