package engine

// BookingStatus is the lifecycle state of a booking.  RESCHEDULED is not a
// persisted state: a successful reschedule re-enters PENDING with new slots,
// so the stored set is the four values below.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
)

// PaymentStatus tracks what the engine needs to know from the payment
// collaborator: whether the booking has been paid.  Everything else about
// payment processing is external.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// transitions lists the allowed status moves.  CANCELLED and COMPLETED are
// terminal and appear only as targets.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to BookingStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition validates a status move and returns a TransitionError (matching
// ErrIllegalTransition) when the move is not permitted.
func Transition(from, to BookingStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// CanModify reports whether a booking may be edited or rescheduled.  Only a
// pending booking that has not been paid is mutable; once confirmed or paid it
// is immutable except through cancellation (with refund handled externally).
func CanModify(status BookingStatus, payment PaymentStatus) bool {
	if status != StatusPending {
		return false
	}
	return payment == PaymentUnpaid || payment == PaymentPending
}

// CanCancel reports whether a booking in the given status may be cancelled.
func CanCancel(status BookingStatus) bool {
	return CanTransition(status, StatusCancelled)
}
