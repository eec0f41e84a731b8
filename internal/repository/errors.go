// Package repository defines error values and helpers reused across multiple
// repositories.  These sentinel values allow higher layers such as handlers
// and the booking service to distinguish failure scenarios.  For example,
// ErrForbidden indicates that the current user is not authorized to act on a
// resource owned by someone else, while ErrDuplicate signals a unique-key
// violation that the booking service translates into a slot conflict.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed because of
// dependent records, such as retiring a sub-field that still has pending
// bookings.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key.  For
// booking_slots this is the authoritative double-booking signal: two
// transactions raced for the same (sub_field, date, slot) and this one lost.
var ErrDuplicate = errors.New("duplicate entry")

// IsDuplicateKey reports whether a MySQL error is a unique-key violation
// (error 1062).  The driver does not expose a typed error for this, so the
// check matches the error number in the message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}

// IsNotFound reports whether err means "no such row", either the raw
// sql.ErrNoRows or one of the repository not-found sentinels wrapping it.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrSubFieldNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrPromotionNotFound) ||
		errors.Is(err, ErrServiceNotFound)
}
