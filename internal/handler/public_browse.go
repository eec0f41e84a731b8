// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes allow
// unauthenticated users to browse fields, check availability and price slot
// selections without requiring authentication. Sensitive fields (owner IDs,
// timestamps) are filtered from responses.

package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/service"
)

// PublicHandler aggregates dependencies for unauthenticated browsing.  It
// produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	Fields *repository.FieldRepo
	Svc    *service.BookingService
}

// PublicField represents a facility exposed via the public API.  It contains
// only safe fields; open and close are clock strings.
type PublicField struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// PublicSubField represents a bookable unit in public responses.
type PublicSubField struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	Open              string `json:"open"`
	Close             string `json:"close"`
	DefaultPriceCents int64  `json:"default_price_cents"`
}

func toPublicField(f *repository.Field) PublicField {
	return PublicField{
		ID:      f.ID,
		Name:    f.Name,
		Address: f.Address,
		Open:    engine.FormatClock(f.OpenMin),
		Close:   engine.FormatClock(f.CloseMin),
	}
}

// ListFields handles GET /v1/fields and returns every active facility.
func (h *PublicHandler) ListFields(c echo.Context) error {
	fields, err := h.Fields.ListActiveFields(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]PublicField, 0, len(fields))
	for _, f := range fields {
		items = append(items, toPublicField(f))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SearchFields handles GET /v1/fields/search with name and address filters
// and pagination.
func (h *PublicHandler) SearchFields(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}
	q := repository.FieldSearchQuery{
		Name:     strings.TrimSpace(c.QueryParam("name")),
		Address:  strings.TrimSpace(c.QueryParam("address")),
		Page:     page,
		PageSize: ps,
	}
	fields, total, err := h.Fields.SearchActiveFields(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
	}
	items := make([]PublicField, 0, len(fields))
	for _, f := range fields {
		items = append(items, toPublicField(f))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

// ListSubFields handles GET /v1/fields/:id/sub-fields and returns the active
// units of one facility.
func (h *PublicHandler) ListSubFields(c echo.Context) error {
	fieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, err := h.Fields.GetFieldByID(c.Request().Context(), fieldID); err != nil {
		if err == repository.ErrFieldNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	subs, err := h.Fields.ListSubFieldsByField(c.Request().Context(), fieldID, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]PublicSubField, 0, len(subs))
	for _, sf := range subs {
		items = append(items, PublicSubField{
			ID:                sf.ID,
			Name:              sf.Name,
			Open:              engine.FormatClock(sf.OpenMin),
			Close:             engine.FormatClock(sf.CloseMin),
			DefaultPriceCents: sf.DefaultPriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetAvailability handles GET /v1/sub-fields/:id/availability?date=YYYY-MM-DD.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	subFieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter must be YYYY-MM-DD"})
	}
	view, err := h.Svc.Availability(c.Request().Context(), subFieldID, date)
	if err != nil {
		if err == repository.ErrSubFieldNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, view)
}

type quoteReq struct {
	Date  string         `json:"date" validate:"required"`
	Slots []slotRangeReq `json:"slots" validate:"required,min=1,dive"`
}

// QuoteSlots handles POST /v1/sub-fields/:id/quote.  It prices a slot
// selection without reserving anything, so customers can see the breakdown
// before booking.
func (h *PublicHandler) QuoteSlots(c echo.Context) error {
	subFieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body quoteReq
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
	slots, subtotal, err := h.Svc.Quote(c.Request().Context(), subFieldID, date, ranges)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sub_field_id":   subFieldID,
		"date":           body.Date,
		"slots":          slots,
		"subtotal_cents": subtotal,
	})
}
