package engine

import "time"

// BookedSlot is the read view of one already-reserved unit (or merged range)
// on a sub-field/date, supplied by the repository layer.  Only slots of
// non-cancelled bookings belong here; cancelled bookings never block.
type BookedSlot struct {
	BookingID uint64
	Range     TimeRange
}

// CheckAvailability compares the requested ranges against the existing booked
// slots of one sub-field on one date and returns every conflict found.  An
// empty result means the whole request fits.
//
// excludeBookingID removes one booking from the conflict set; reschedules pass
// the booking under modification so it does not collide with its own current
// slots.  Pass zero when creating.
//
// This is the fast-path check only.  The authoritative arbiter against
// concurrent writers is the unique key on (sub_field, date, unit start) that
// the storage layer enforces at commit time.
func CheckAvailability(subFieldID uint64, date time.Time, requested []TimeRange, existing []BookedSlot, excludeBookingID uint64) []Conflict {
	var conflicts []Conflict
	day := DateOf(date)
	for _, req := range requested {
		for _, b := range existing {
			if excludeBookingID != 0 && b.BookingID == excludeBookingID {
				continue
			}
			if req.Overlaps(b.Range) {
				conflicts = append(conflicts, Conflict{
					SubFieldID: subFieldID,
					Date:       day,
					Requested:  req,
					BookingID:  b.BookingID,
					Booked:     b.Range,
				})
			}
		}
	}
	return conflicts
}
