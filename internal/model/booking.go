package model

import "time"

// Booking records one sub-field reserved for one date across one or more
// 30-minute slots.  A multi-sub-field request produces one primary booking
// plus one linked booking per additional sub-field; linked bookings carry
// PrimaryBookingID and may not own further links (link depth is exactly one).
//
// Fields:
//  ID               – primary key identifier.
//  Code             – opaque reference code (uuid) shown to the customer.
//  UserID           – customer who made the booking.
//  SubFieldID       – sub-field being reserved.
//  BookingDate      – calendar day of the reservation (UTC).
//  SubtotalCents    – sum of slot prices plus add-ons before discount.
//  DiscountCents    – promotional discount applied to the primary booking.
//  TotalCents       – SubtotalCents minus DiscountCents.
//  PromotionID      – promotion redeemed, if any (primary booking only).
//  Status           – lifecycle state (PENDING, CONFIRMED, CANCELLED,
//                     COMPLETED).
//  PaymentStatus    – what the payment collaborator reported (UNPAID,
//                     PENDING, PAID, REFUNDED).
//  PrimaryBookingID – anchor booking when part of a multi-sub-field request.
//  ReminderSent     – one-shot notification flag; set exactly once via a
//                     guarded update and never reset by later transitions.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
	ID               uint64    // bookings.id
	Code             string    // bookings.code
	UserID           uint64    // bookings.user_id
	SubFieldID       uint64    // bookings.sub_field_id
	BookingDate      time.Time // bookings.booking_date
	SubtotalCents    int64     // bookings.subtotal_cents
	DiscountCents    int64     // bookings.discount_cents
	TotalCents       int64     // bookings.total_cents
	PromotionID      *uint64   // bookings.promotion_id (nullable)
	Status           string    // bookings.status
	PaymentStatus    string    // bookings.payment_status
	PrimaryBookingID *uint64   // bookings.primary_booking_id (nullable)
	ReminderSent     bool      // bookings.reminder_sent
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}

// BookingSlot is one reserved 30-minute unit of a booking.  The unique key
// over (sub_field_id, booking_date, start_min) is the storage-level arbiter
// that makes double-booking impossible under concurrent commits.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – owning booking.
//  SubFieldID  – denormalized sub-field for the unique key.
//  BookingDate – denormalized date for the unique key.
//  StartMin    – slot start, minutes from midnight.
//  EndMin      – slot end, always StartMin + 30.
//  PriceCents  – price charged for this slot.
//  CreatedAt   – creation timestamp.
type BookingSlot struct {
	ID          uint64    // booking_slots.id
	BookingID   uint64    // booking_slots.booking_id
	SubFieldID  uint64    // booking_slots.sub_field_id
	BookingDate time.Time // booking_slots.booking_date
	StartMin    int       // booking_slots.start_min
	EndMin      int       // booking_slots.end_min
	PriceCents  int64     // booking_slots.price_cents
	CreatedAt   time.Time // booking_slots.created_at
}

// BookingService attaches a quantity of a facility add-on service to a
// booking.  Add-ons contribute quantity times unit price to the subtotal and
// are independent of time slots.
//
// Fields:
//  ID             – primary key identifier.
//  BookingID      – owning booking.
//  FieldServiceID – add-on service booked.
//  Quantity       – how many units of the service.
//  PriceCents     – unit price captured at booking time.
//  CreatedAt      – creation timestamp.
type BookingService struct {
	ID             uint64    // booking_services.id
	BookingID      uint64    // booking_services.booking_id
	FieldServiceID uint64    // booking_services.field_service_id
	Quantity       int       // booking_services.quantity
	PriceCents     int64     // booking_services.price_cents
	CreatedAt      time.Time // booking_services.created_at
}
