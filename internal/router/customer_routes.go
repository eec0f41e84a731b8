package router

import (
	"github.com/cuthanhcam/sport-field-booking/internal/handler"
	"github.com/cuthanhcam/sport-field-booking/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role.  Customers can create booking
// transactions, confirm, cancel or reschedule them, record payment and view
// their own bookings.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	// Note: GET /v1/sub-fields/:id/availability and POST /v1/sub-fields/:id/quote
	// are registered on the public router so that guests can check slots and
	// prices before signing up.  Customer-specific endpoints begin here.
	g.POST("/bookings", h.CreateBooking)
	g.POST("/bookings/:id/confirm", h.ConfirmBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)
	// Reschedule moves a pending booking's slots to a new date or set of
	// time ranges.  Confirmed or paid bookings cannot be moved.
	g.PUT("/bookings/:id/slots", h.RescheduleBooking)
	g.POST("/bookings/:id/pay", h.PayBooking)
	g.GET("/my-bookings", h.ListBookings)

	// Booking detail for the owning customer.  Ownership is validated
	// within the handler.
	g.GET("/bookings/:id", h.GetBooking)
}
