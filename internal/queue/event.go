// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for booking lifecycle events.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
	BookingReminderQueue  = "booking.reminder"
)

// SlotPayload is one reserved interval inside an event, clock-formatted.
type SlotPayload struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// BookingConfirmedEvent is published when a booking is confirmed.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    uint64        `json:"booking_id"`
	Code         string        `json:"code"`
	UserID       uint64        `json:"user_id"`
	FieldName    string        `json:"field_name"`
	SubFieldName string        `json:"sub_field_name"`
	BookingDate  string        `json:"booking_date"` // YYYY-MM-DD
	Slots        []SlotPayload `json:"slots"`
	TotalCents   int64         `json:"total_cents"`
	ConfirmedAt  string        `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a booking (and any bookings
// linked to it) is cancelled.
type BookingCancelledEvent struct {
	BookingID   uint64   `json:"booking_id"`
	Code        string   `json:"code"`
	UserID      uint64   `json:"user_id"`
	LinkedIDs   []uint64 `json:"linked_booking_ids,omitempty"`
	CancelledAt string   `json:"cancelled_at"`
}

// BookingReminderEvent is published at most once per booking on the day
// before play.
type BookingReminderEvent struct {
	BookingID    uint64        `json:"booking_id"`
	Code         string        `json:"code"`
	UserID       uint64        `json:"user_id"`
	FieldName    string        `json:"field_name"`
	SubFieldName string        `json:"sub_field_name"`
	BookingDate  string        `json:"booking_date"`
	Slots        []SlotPayload `json:"slots"`
}
