package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/service"
)

// CustomerHandler exposes the booking workflow to customers.  Validation,
// pricing and the reservation transaction live in the service; this layer
// binds requests and translates errors to HTTP responses.
type CustomerHandler struct {
	Svc      *service.BookingService
	Bookings *repository.BookingRepo
}

// NewCustomerHandler constructs a new CustomerHandler.
func NewCustomerHandler(svc *service.BookingService, bookings *repository.BookingRepo) *CustomerHandler {
	if svc == nil || bookings == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Svc: svc, Bookings: bookings}
}

type slotRangeReq struct {
	Start string `json:"start" validate:"required"` // HH:MM
	End   string `json:"end" validate:"required"`
}

type subFieldBookingReq struct {
	SubFieldID uint64         `json:"sub_field_id" validate:"required,gt=0"`
	Slots      []slotRangeReq `json:"slots" validate:"required,min=1,dive"`
}

type addOnReq struct {
	ServiceID uint64 `json:"service_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type createBookingReq struct {
	Date      string               `json:"date" validate:"required"` // YYYY-MM-DD
	SubFields []subFieldBookingReq `json:"sub_fields" validate:"required,min=1,dive"`
	AddOns    []addOnReq           `json:"add_ons" validate:"omitempty,dive"`
	PromoCode string               `json:"promo_code" validate:"omitempty,max=32"`
	// When set, an inapplicable promo code fails the request instead of
	// producing a warning.
	RequirePromotion bool `json:"require_promotion"`
}

func parseRanges(slots []slotRangeReq) ([]engine.TimeRange, error) {
	out := make([]engine.TimeRange, 0, len(slots))
	for _, s := range slots {
		r, err := engine.ParseRange(s.Start, s.End)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// bookingError maps service and engine errors onto HTTP responses.  Slot
// conflicts carry the full conflict list in the body.
func bookingError(c echo.Context, err error) error {
	var conflictErr *engine.ConflictError
	var validationErr *engine.ValidationError
	var promoErr *engine.PromoIneligibleError
	switch {
	case errors.As(err, &conflictErr):
		items := make([]echo.Map, 0, len(conflictErr.Conflicts))
		for _, cf := range conflictErr.Conflicts {
			items = append(items, echo.Map{
				"sub_field_id": cf.SubFieldID,
				"date":         cf.Date.Format("2006-01-02"),
				"requested":    cf.Requested.String(),
				"booked":       cf.Booked.String(),
			})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot unavailable", "conflicts": items})
	case errors.As(err, &promoErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": promoErr.Error()})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationErr.Error()})
	case errors.Is(err, engine.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTooManySubFields), errors.Is(err, service.ErrPastDate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// CreateBooking handles POST /v1/bookings.  One request may reserve several
// sub-fields for the same date; all of them are booked atomically.
func (h *CustomerHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	in := service.CreateBookingInput{
		UserID:           userID,
		Date:             date,
		PromoCode:        body.PromoCode,
		RequirePromotion: body.RequirePromotion,
	}
	for _, sf := range body.SubFields {
		ranges, err := parseRanges(sf.Slots)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		in.SubFields = append(in.SubFields, service.SubFieldRequest{SubFieldID: sf.SubFieldID, Ranges: ranges})
	}
	for _, a := range body.AddOns {
		in.AddOns = append(in.AddOns, service.AddOnRequest{ServiceID: a.ServiceID, Quantity: a.Quantity})
	}
	res, err := h.Svc.CreateBooking(c.Request().Context(), in)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.
func (h *CustomerHandler) ConfirmBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.ConfirmBooking(c.Request().Context(), userID, id); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(engine.StatusConfirmed)})
}

// CancelBooking handles DELETE /v1/bookings/:id.  Cancelling a primary
// booking also cancels its linked bookings.
func (h *CustomerHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), userID, id); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type rescheduleReq struct {
	Date  string         `json:"date" validate:"required"`
	Slots []slotRangeReq `json:"slots" validate:"required,min=1,dive"`
}

// RescheduleBooking handles PUT /v1/bookings/:id/slots.
func (h *CustomerHandler) RescheduleBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body rescheduleReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ranges, err := parseRanges(body.Slots)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sum, err := h.Svc.RescheduleBooking(c.Request().Context(), service.RescheduleInput{
		UserID:    userID,
		BookingID: id,
		Date:      date,
		Ranges:    ranges,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// PayBooking handles POST /v1/bookings/:id/pay and records the external
// payment result.
func (h *CustomerHandler) PayBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.MarkPaid(c.Request().Context(), userID, id); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_status": string(engine.PaymentPaid)})
}

// ListBookings handles GET /v1/my-bookings.
func (h *CustomerHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking handles GET /v1/bookings/:id.  A booking of another user reads
// as not found.
func (h *CustomerHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	detail, err := h.Bookings.GetDetailForUser(c.Request().Context(), id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}
