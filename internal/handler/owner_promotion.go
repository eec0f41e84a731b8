package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

type promotionReq struct {
	Code             string `json:"code" validate:"required,min=3,max=32,alphanum"`
	DiscountType     string `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue    int64  `json:"discount_value" validate:"gt=0"`
	MaxDiscountCents *int64 `json:"max_discount_cents" validate:"omitempty,gt=0"`
	MinBookingCents  *int64 `json:"min_booking_cents" validate:"omitempty,gt=0"`
	UsageLimit       *int   `json:"usage_limit" validate:"omitempty,gt=0"`
	StartsAt         string `json:"starts_at" validate:"required"` // RFC 3339
	EndsAt           string `json:"ends_at" validate:"required"`
}

// CreatePromotion handles POST /v1/promotions.
func (h *OwnerHandler) CreatePromotion(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body promotionReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	endsAt, err := time.Parse(time.RFC3339, body.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC 3339"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	if body.DiscountType == engine.DiscountPercentage && body.DiscountValue > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percentage discount cannot exceed 100"})
	}
	p := &repository.Promotion{
		Code:             body.Code,
		DiscountType:     body.DiscountType,
		DiscountValue:    body.DiscountValue,
		MaxDiscountCents: body.MaxDiscountCents,
		MinBookingCents:  body.MinBookingCents,
		UsageLimit:       body.UsageLimit,
		StartsAt:         startsAt.UTC(),
		EndsAt:           endsAt.UTC(),
		IsActive:         true,
	}
	if err := h.Promotions.Create(c.Request().Context(), p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "promotion code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create promotion"})
	}
	return c.JSON(http.StatusCreated, p)
}

// ListPromotions handles GET /v1/promotions.
func (h *OwnerHandler) ListPromotions(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Promotions.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeactivatePromotion handles DELETE /v1/promotions/:id.  The row survives
// for bookings that already reference it.
func (h *OwnerHandler) DeactivatePromotion(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Promotions.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "promotion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSubFieldBookings handles GET /v1/sub-fields/:id/bookings?date=YYYY-MM-DD,
// the owner's day sheet for one sub-field.
func (h *OwnerHandler) ListSubFieldBookings(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	subFieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter must be YYYY-MM-DD"})
	}
	items, err := h.Bookings.ListBySubFieldForOwner(c.Request().Context(), subFieldID, ownerID, date)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSubFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
