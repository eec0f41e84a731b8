package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors shared across the engine.  Handlers compare against these
// with errors.Is to pick HTTP status codes; the service layer wraps them with
// request-specific detail.
var (
	// ErrSlotUnavailable marks any availability conflict, whether detected by
	// the fast-path check or by the storage unique key at commit time.  It is
	// a normal business failure: callers may retry with different ranges.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrIllegalTransition is returned when a booking status change is not
	// permitted from its current state.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrConfiguration signals inconsistent operator data, for example a
	// pricing rule referencing an unknown sub-field.  Not retryable by the
	// end caller.
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError reports malformed or self-conflicting input.  It is always
// the caller's fault and is raised before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// Conflict describes one requested range that collides with an existing
// booking.  The existing booking id lets the caller explain exactly which
// reservation is in the way.
type Conflict struct {
	SubFieldID uint64    `json:"sub_field_id"`
	Date       time.Time `json:"date"`
	Requested  TimeRange `json:"requested"`
	BookingID  uint64    `json:"booking_id"`
	Booked     TimeRange `json:"booked"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("sub-field %d on %s: %s collides with booking %d (%s)",
		c.SubFieldID, c.Date.Format("2006-01-02"), c.Requested, c.BookingID, c.Booked)
}

// ConflictError aggregates every conflict found for a booking request.  The
// transaction manager collects conflicts across all requested sub-fields
// before failing, so the caller sees the full picture in one round trip.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return "slot unavailable: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrSlotUnavailable) match a ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrSlotUnavailable }

// PromoIneligibleReason enumerates why a promotion could not be applied.  The
// checks run in this order and short-circuit on the first failure.
type PromoIneligibleReason string

const (
	PromoNotFound     PromoIneligibleReason = "NOT_FOUND"
	PromoInactive     PromoIneligibleReason = "INACTIVE"
	PromoOutsideDates PromoIneligibleReason = "OUTSIDE_DATES"
	PromoUsageLimit   PromoIneligibleReason = "USAGE_LIMIT_REACHED"
	PromoMinSubtotal  PromoIneligibleReason = "SUBTOTAL_TOO_LOW"
)

// PromoIneligibleError reports that a promotion code exists in the request but
// may not be applied.  Booking creation treats this as a warning unless the
// caller explicitly requires the promotion.
type PromoIneligibleError struct {
	Code   string
	Reason PromoIneligibleReason
}

func (e *PromoIneligibleError) Error() string {
	return fmt.Sprintf("promotion %q not applicable: %s", e.Code, e.Reason)
}

// TransitionError carries the rejected from/to pair for messaging.
type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}

// Is lets errors.Is(err, ErrIllegalTransition) match a TransitionError.
func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }
