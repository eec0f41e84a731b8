package router // router defines how HTTP routes are registered for the API

import (
	"github.com/cuthanhcam/sport-field-booking/internal/handler"    // owner handlers
	"github.com/cuthanhcam/sport-field-booking/internal/middleware" // JWT + role middlewares
	"github.com/labstack/echo/v4"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1.
// All routes require a valid JWT and OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER"),
	)

	// ---- Fields ----
	g.POST("/fields", o.CreateField)
	// NOTE: the public browse API also serves GET /v1/fields, but that route
	// returns sanitized data for everyone.  Owners list their own venues here.
	g.GET("/my-fields", o.ListFields)
	g.PUT("/fields/:id", o.UpdateField)
	g.PATCH("/fields/:id", o.UpdateField) // allow partial/semantic updates via PATCH as well
	g.DELETE("/fields/:id", o.RetireField)

	// ---- Sub-fields ----
	g.POST("/fields/:id/sub-fields", o.CreateSubField)
	// NOTE: Listing sub-fields by field is provided by the public API
	// (GET /v1/fields/:id/sub-fields); the owner variant includes retired units.
	g.GET("/fields/:id/sub-fields/all", o.ListSubFields)
	g.PUT("/sub-fields/:id", o.UpdateSubField)
	g.PATCH("/sub-fields/:id", o.UpdateSubField)
	g.DELETE("/sub-fields/:id", o.RetireSubField)

	// ---- Pricing rules ----
	g.POST("/sub-fields/:id/pricing-rules", o.CreatePricingRule)
	g.GET("/sub-fields/:id/pricing-rules", o.ListPricingRules)
	g.DELETE("/pricing-rules/:id", o.DeletePricingRule)

	// ---- Add-on services ----
	g.POST("/fields/:id/services", o.CreateService)
	g.GET("/fields/:id/services", o.ListServices)
	g.PUT("/services/:id", o.UpdateService)
	g.PATCH("/services/:id", o.UpdateService)
	g.DELETE("/services/:id", o.RetireService)

	// ---- Promotions ----
	g.POST("/promotions", o.CreatePromotion)
	g.GET("/promotions", o.ListPromotions)
	g.DELETE("/promotions/:id", o.DeactivatePromotion)

	// ---- Bookings ----
	// Owners review the bookings taken on one of their sub-fields for a
	// given day (?date=YYYY-MM-DD) and may confirm or cancel them.
	g.GET("/sub-fields/:id/bookings", o.ListSubFieldBookings)
	g.POST("/owner/bookings/:id/confirm", o.ConfirmBooking)
	g.DELETE("/owner/bookings/:id", o.CancelBooking)
}
