package handler

// Owner-side booking overrides.  Owners may confirm or cancel bookings taken
// on their own sub-fields; the service checks field ownership through the
// booking and cascades over the linked graph exactly as the customer path
// does.

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConfirmBooking handles POST /v1/owner/bookings/:id/confirm.
func (h *OwnerHandler) ConfirmBooking(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.OwnerConfirmBooking(c.Request().Context(), ownerID, bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "CONFIRMED"})
}

// CancelBooking handles DELETE /v1/owner/bookings/:id.
func (h *OwnerHandler) CancelBooking(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.OwnerCancelBooking(c.Request().Context(), ownerID, bookingID); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
