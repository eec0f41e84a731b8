package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

type fieldServiceReq struct {
	Name       string `json:"name" validate:"required,min=1,max=120"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// CreateService handles POST /v1/fields/:id/services and registers an add-on
// (ball rental, referee, lighting) for the field.
func (h *OwnerHandler) CreateService(c echo.Context) error {
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
	var body fieldServiceReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	svc := &repository.FieldService{
		FieldID:    fieldID,
		Name:       strings.TrimSpace(body.Name),
		PriceCents: body.PriceCents,
	}
	if err := h.Services.Create(c.Request().Context(), svc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "service name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create service"})
	}
	return c.JSON(http.StatusCreated, svc)
}

// ListServices handles GET /v1/fields/:id/services for the owner.
func (h *OwnerHandler) ListServices(c echo.Context) error {
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
	items, err := h.Services.ListByField(c.Request().Context(), fieldID, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateService handles PUT /v1/services/:id.
func (h *OwnerHandler) UpdateService(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body fieldServiceReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Services.UpdateByIDAndOwner(c.Request().Context(), id, ownerID, strings.TrimSpace(body.Name), body.PriceCents); err != nil {
		switch {
		case errors.Is(err, repository.ErrServiceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// RetireService handles DELETE /v1/services/:id.
func (h *OwnerHandler) RetireService(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Services.RetireByIDAndOwner(c.Request().Context(), id, ownerID); err != nil {
		switch {
		case errors.Is(err, repository.ErrServiceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retire failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
