package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

type pricingRuleReq struct {
	DayOfWeek  int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// CreatePricingRule handles POST /v1/sub-fields/:id/pricing-rules.  The new
// rule is checked against the sub-field's existing rules: it must be
// grid-aligned, inside the operating window and must not overlap another
// rule on the same weekday.
func (h *OwnerHandler) CreatePricingRule(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	subFieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	actualOwner, err := h.Fields.OwnerOfSubField(c.Request().Context(), subFieldID)
	if err != nil {
		if errors.Is(err, repository.ErrSubFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if actualOwner != ownerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var body pricingRuleReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	interval, err := engine.ParseRange(body.StartTime, body.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	sub, err := h.Fields.GetSubFieldByID(c.Request().Context(), subFieldID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	window := engine.TimeRange{StartMin: sub.OpenMin, EndMin: sub.CloseMin}
	if err := interval.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !window.Contains(interval) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rule outside operating window"})
	}

	// Rebuild the index with the candidate rule included; an overlap on the
	// same weekday comes back as a configuration error.
	stored, err := h.Rules.ListBySubField(c.Request().Context(), subFieldID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	rules := make([]engine.Rule, 0, len(stored)+1)
	for _, pr := range stored {
		rules = append(rules, engine.Rule{
			Weekday:    time.Weekday(pr.DayOfWeek),
			Interval:   engine.TimeRange{StartMin: pr.StartMin, EndMin: pr.EndMin},
			PriceCents: pr.PriceCents,
		})
	}
	rules = append(rules, engine.Rule{
		Weekday:    time.Weekday(body.DayOfWeek),
		Interval:   interval,
		PriceCents: body.PriceCents,
	})
	if _, err := engine.NewRuleIndex(sub.DefaultPriceCents, rules); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	rule := &repository.PricingRule{
		SubFieldID: subFieldID,
		DayOfWeek:  body.DayOfWeek,
		StartMin:   interval.StartMin,
		EndMin:     interval.EndMin,
		PriceCents: body.PriceCents,
	}
	if err := h.Rules.Create(c.Request().Context(), rule); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create rule"})
	}
	return c.JSON(http.StatusCreated, rule)
}

// ListPricingRules handles GET /v1/sub-fields/:id/pricing-rules.
func (h *OwnerHandler) ListPricingRules(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	subFieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	actualOwner, err := h.Fields.OwnerOfSubField(c.Request().Context(), subFieldID)
	if err != nil {
		if errors.Is(err, repository.ErrSubFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if actualOwner != ownerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	items, err := h.Rules.ListBySubField(c.Request().Context(), subFieldID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeletePricingRule handles DELETE /v1/pricing-rules/:id.
func (h *OwnerHandler) DeletePricingRule(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Rules.DeleteByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRuleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
