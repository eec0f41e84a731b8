package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

type fieldReq struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Address  string `json:"address" validate:"max=255"`
	OpenTime string `json:"open_time" validate:"required"`  // HH:MM
	CloseT   string `json:"close_time" validate:"required"` // HH:MM
}

// CreateField handles POST /v1/fields and creates a new facility for the
// authenticated owner.  The operating window must be aligned to the slot
// grid.
func (h *OwnerHandler) CreateField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body fieldReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	window, err := engine.ParseRange(body.OpenTime, body.CloseT)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := window.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	field := &repository.Field{
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(body.Name),
		Address:  strings.TrimSpace(body.Address),
		OpenMin:  window.StartMin,
		CloseMin: window.EndMin,
	}
	if err := h.Fields.CreateField(c.Request().Context(), field); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "field name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create field"})
	}
	return c.JSON(http.StatusCreated, field)
}

// UpdateField handles PUT /v1/fields/:id.
func (h *OwnerHandler) UpdateField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body fieldReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	window, err := engine.ParseRange(body.OpenTime, body.CloseT)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := window.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	// Narrowing the venue window must not strand sub-fields outside it.
	subFields, err := h.Fields.ListSubFieldsByField(c.Request().Context(), id, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	for _, sf := range subFields {
		if !window.Contains(engine.TimeRange{StartMin: sf.OpenMin, EndMin: sf.CloseMin}) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "field window would exclude sub-field " + sf.Name,
			})
		}
	}
	field := &repository.Field{
		ID:       id,
		Name:     strings.TrimSpace(body.Name),
		Address:  strings.TrimSpace(body.Address),
		OpenMin:  window.StartMin,
		CloseMin: window.EndMin,
	}
	if err := h.Fields.UpdateField(c.Request().Context(), field, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "field name already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	updated, _ := h.Fields.GetFieldByID(c.Request().Context(), id)
	return c.JSON(http.StatusOK, updated)
}

// ListFields handles GET /v1/fields and returns the owner's facilities.
func (h *OwnerHandler) ListFields(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Fields.ListFieldsByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// RetireField handles DELETE /v1/fields/:id.  The field and its sub-fields
// are deactivated, not removed; existing bookings keep their history.
func (h *OwnerHandler) RetireField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Fields.RetireField(c.Request().Context(), id, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retire failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

type subFieldReq struct {
	Name         string `json:"name" validate:"required,min=1,max=120"`
	OpenTime     string `json:"open_time" validate:"required"`
	CloseT       string `json:"close_time" validate:"required"`
	DefaultPrice int64  `json:"default_price_cents" validate:"gte=0"`
}

// CreateSubField handles POST /v1/fields/:id/sub-fields.
func (h *OwnerHandler) CreateSubField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	parent, err := h.Fields.GetFieldByIDAndOwner(c.Request().Context(), fieldID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	var body subFieldReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	window, err := engine.ParseRange(body.OpenTime, body.CloseT)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := window.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	// A sub-field can never be open while its venue is closed.
	parentWindow := engine.TimeRange{StartMin: parent.OpenMin, EndMin: parent.CloseMin}
	if !parentWindow.Contains(window) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sub-field window must lie within the field window"})
	}
	sf := &repository.SubField{
		FieldID:           fieldID,
		Name:              strings.TrimSpace(body.Name),
		OpenMin:           window.StartMin,
		CloseMin:          window.EndMin,
		DefaultPriceCents: body.DefaultPrice,
	}
	if err := h.Fields.CreateSubField(c.Request().Context(), sf); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sub-field name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create sub-field"})
	}
	return c.JSON(http.StatusCreated, sf)
}

// ListSubFields handles GET /v1/fields/:id/sub-fields for the owner,
// including retired ones.
func (h *OwnerHandler) ListSubFields(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fieldID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, err := h.Fields.GetFieldByIDAndOwner(c.Request().Context(), fieldID, ownerID); err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items, err := h.Fields.ListSubFieldsByField(c.Request().Context(), fieldID, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateSubField handles PUT /v1/sub-fields/:id.
func (h *OwnerHandler) UpdateSubField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body subFieldReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	window, err := engine.ParseRange(body.OpenTime, body.CloseT)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := window.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	current, err := h.Fields.GetSubFieldByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSubFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	parent, err := h.Fields.GetFieldByID(c.Request().Context(), current.FieldID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	parentWindow := engine.TimeRange{StartMin: parent.OpenMin, EndMin: parent.CloseMin}
	if !parentWindow.Contains(window) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sub-field window must lie within the field window"})
	}
	sf := &repository.SubField{
		ID:                id,
		Name:              strings.TrimSpace(body.Name),
		OpenMin:           window.StartMin,
		CloseMin:          window.EndMin,
		DefaultPriceCents: body.DefaultPrice,
	}
	if err := h.Fields.UpdateSubField(c.Request().Context(), sf, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "sub-field name already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	updated, _ := h.Fields.GetSubFieldByID(c.Request().Context(), id)
	return c.JSON(http.StatusOK, updated)
}

// RetireSubField handles DELETE /v1/sub-fields/:id.
func (h *OwnerHandler) RetireSubField(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Fields.RetireSubField(c.Request().Context(), id, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sub-field not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retire failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
