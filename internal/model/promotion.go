package model

import "time"

// Promotion is a discount code with eligibility and usage constraints.
// Nullable limits use pointers: nil means the limit is not set.  The usage
// counter is incremented inside the same transaction that commits the
// discounted booking, so UsageCount can never pass UsageLimit under
// concurrent redemption.
//
// Fields:
//  ID               – primary key identifier.
//  Code             – unique promotion code.
//  DiscountType     – PERCENTAGE or FIXED.
//  DiscountValue    – percent for PERCENTAGE, cents for FIXED.
//  MaxDiscountCents – cap on a percentage discount (nullable).
//  MinBookingCents  – minimum subtotal to qualify (nullable).
//  UsageLimit       – maximum number of redemptions (nullable).
//  UsageCount       – redemptions so far.
//  StartsAt         – first instant the code is valid.
//  EndsAt           – last instant the code is valid.
//  IsActive         – manual kill switch for the code.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Promotion struct {
	ID               uint64    // promotions.id
	Code             string    // promotions.code
	DiscountType     string    // promotions.discount_type
	DiscountValue    int64     // promotions.discount_value
	MaxDiscountCents *int64    // promotions.max_discount_cents (nullable)
	MinBookingCents  *int64    // promotions.min_booking_cents (nullable)
	UsageLimit       *int      // promotions.usage_limit (nullable)
	UsageCount       int       // promotions.usage_count
	StartsAt         time.Time // promotions.starts_at
	EndsAt           time.Time // promotions.ends_at
	IsActive         bool      // promotions.is_active
	CreatedAt        time.Time // promotions.created_at
	UpdatedAt        time.Time // promotions.updated_at
}
