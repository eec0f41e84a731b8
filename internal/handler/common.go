package handler // handler defines http handlers

import (
	"errors"  // sentinel values used in getUserID
	"strconv" // string to numeric conversions

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/service"
)

// OwnerHandler bundles repositories for owners to manage fields, sub-fields,
// pricing rules, add-on services and promotions, plus the booking service for
// owner-side booking overrides.
type OwnerHandler struct {
	Fields     *repository.FieldRepo
	Rules      *repository.PricingRuleRepo
	Services   *repository.FieldServiceRepo
	Promotions *repository.PromotionRepo
	Bookings   *repository.BookingRepo
	Svc        *service.BookingService
}

// NewOwnerHandler constructs a new OwnerHandler and panics if any dependency is nil.
func NewOwnerHandler(fields *repository.FieldRepo, rules *repository.PricingRuleRepo, services *repository.FieldServiceRepo, promotions *repository.PromotionRepo, bookings *repository.BookingRepo, svc *service.BookingService) *OwnerHandler {
	if fields == nil || rules == nil || services == nil || promotions == nil || bookings == nil || svc == nil {
		panic("nil dependency passed to NewOwnerHandler")
	}
	return &OwnerHandler{
		Fields:     fields,
		Rules:      rules,
		Services:   services,
		Promotions: promotions,
		Bookings:   bookings,
		Svc:        svc,
	}
}

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseIDParam parses a positive numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// RequestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound bodies.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator used by the HTTP layer.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
