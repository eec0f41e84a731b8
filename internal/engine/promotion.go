package engine

import (
	"fmt"
	"time"
)

// Promotion discount types.
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// Promotion is the evaluator's view of a stored promotion code.  Limits are
// pointers so that nil means "no limit set", mirroring the nullable columns.
type Promotion struct {
	ID               uint64
	Code             string
	DiscountType     string
	DiscountValue    int64 // percent for PERCENTAGE, cents for FIXED
	MaxDiscountCents *int64
	MinBookingCents  *int64
	UsageLimit       *int
	UsageCount       int
	StartsAt         time.Time
	EndsAt           time.Time
	IsActive         bool
}

// EvaluatePromotion checks eligibility and computes the discount for the
// given subtotal.  Checks run in a fixed order and stop at the first failure:
// active flag, date window, usage cap, minimum subtotal.  An ineligible
// promotion never reduces the subtotal; the returned PromoIneligibleError
// names the failing check so the caller can surface it as a warning.
//
// The returned discount is bounded: a percentage discount is clamped to the
// promotion's max cap when one is set, and a fixed discount never exceeds the
// subtotal, so the payable total cannot go negative.
//
// Incrementing the usage counter is not done here; it must happen inside the
// same transaction that commits the discounted booking (see service package),
// otherwise two concurrent redemptions of the last use could both pass.
func EvaluatePromotion(p *Promotion, subtotalCents int64, asOf time.Time) (int64, error) {
	if p == nil {
		return 0, &PromoIneligibleError{Reason: PromoNotFound}
	}
	if !p.IsActive {
		return 0, &PromoIneligibleError{Code: p.Code, Reason: PromoInactive}
	}
	if asOf.Before(p.StartsAt) || asOf.After(p.EndsAt) {
		return 0, &PromoIneligibleError{Code: p.Code, Reason: PromoOutsideDates}
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return 0, &PromoIneligibleError{Code: p.Code, Reason: PromoUsageLimit}
	}
	if p.MinBookingCents != nil && subtotalCents < *p.MinBookingCents {
		return 0, &PromoIneligibleError{Code: p.Code, Reason: PromoMinSubtotal}
	}

	var discount int64
	switch p.DiscountType {
	case DiscountPercentage:
		discount = subtotalCents * p.DiscountValue / 100
		if p.MaxDiscountCents != nil && discount > *p.MaxDiscountCents {
			discount = *p.MaxDiscountCents
		}
	case DiscountFixed:
		discount = p.DiscountValue
	default:
		// A corrupt discount type is operator data, not caller ineligibility.
		return 0, fmt.Errorf("%w: promotion %s has unknown discount type %q", ErrConfiguration, p.Code, p.DiscountType)
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}
