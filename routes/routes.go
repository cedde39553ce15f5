package routes

import (
	"rentflow/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all endpoints of the booking wizard API.
func RegisterRoutes(r *gin.Engine, wizard *handlers.WizardHandler) {
	r.GET("/healthz", handlers.Health)

	api := r.Group("/api/wizard")
	{
		api.POST("/session", wizard.InitiateSession)
		api.GET("/session/:sessionID", wizard.GetSession)
		api.DELETE("/session/:sessionID", wizard.CancelSession)

		// Step 1: dates + live availability.
		api.PUT("/session/:sessionID/dates", wizard.SelectDates)
		api.POST("/session/:sessionID/dates/pick", wizard.PickDate)
		api.PUT("/session/:sessionID/timeslot", wizard.SelectTimeSlot)
		api.GET("/session/:sessionID/availability", wizard.Availability)

		// Navigation.
		api.POST("/session/:sessionID/advance", wizard.Advance)
		api.POST("/session/:sessionID/contact", wizard.SubmitContact)
		api.POST("/session/:sessionID/back", wizard.GoBack)
		api.POST("/session/:sessionID/reset", wizard.Reset)

		// Step 3: payment widget lifecycle + submission.
		api.POST("/session/:sessionID/payment/attach", wizard.EnterPayment)
		api.POST("/session/:sessionID/payment/detach", wizard.LeavePayment)
		api.POST("/session/:sessionID/submit", wizard.Submit)
	}
}
