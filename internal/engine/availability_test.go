package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestCheckAvailability_FreeDay(t *testing.T) {
	conflicts := CheckAvailability(7, monday, []TimeRange{
		mustRange(t, "09:00", "10:00"),
		mustRange(t, "17:00", "18:00"),
	}, nil, 0)
	assert.Empty(t, conflicts)
}

func TestCheckAvailability_BoundaryTouchingNeverConflicts(t *testing.T) {
	existing := []BookedSlot{{BookingID: 11, Range: mustRange(t, "18:00", "19:00")}}
	conflicts := CheckAvailability(7, monday, []TimeRange{mustRange(t, "17:00", "18:00")}, existing, 0)
	assert.Empty(t, conflicts)
}

func TestCheckAvailability_ReportsEveryConflict(t *testing.T) {
	existing := []BookedSlot{
		{BookingID: 11, Range: mustRange(t, "09:30", "10:30")},
		{BookingID: 12, Range: mustRange(t, "17:00", "18:00")},
	}
	conflicts := CheckAvailability(7, monday, []TimeRange{
		mustRange(t, "09:00", "10:00"),
		mustRange(t, "17:30", "19:00"),
	}, existing, 0)
	require.Len(t, conflicts, 2)
	assert.Equal(t, uint64(11), conflicts[0].BookingID)
	assert.Equal(t, mustRange(t, "09:00", "10:00"), conflicts[0].Requested)
	assert.Equal(t, uint64(12), conflicts[1].BookingID)
	assert.Equal(t, uint64(7), conflicts[1].SubFieldID)
}

func TestCheckAvailability_ExcludesOwnBookingOnReschedule(t *testing.T) {
	existing := []BookedSlot{
		{BookingID: 11, Range: mustRange(t, "17:00", "18:00")},
		{BookingID: 12, Range: mustRange(t, "19:00", "20:00")},
	}
	// moving booking 11 one slot later still overlaps its own old range only
	conflicts := CheckAvailability(7, monday, []TimeRange{mustRange(t, "17:30", "18:30")}, existing, 11)
	assert.Empty(t, conflicts)

	// but it still collides with other bookings
	conflicts = CheckAvailability(7, monday, []TimeRange{mustRange(t, "19:30", "20:30")}, existing, 11)
	require.Len(t, conflicts, 1)
	assert.Equal(t, uint64(12), conflicts[0].BookingID)
}

func TestConflictError_MatchesSentinel(t *testing.T) {
	err := &ConflictError{Conflicts: []Conflict{{
		SubFieldID: 7,
		Date:       monday,
		Requested:  mustRange(t, "17:00", "18:00"),
		BookingID:  11,
		Booked:     mustRange(t, "17:30", "18:30"),
	}}}
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Contains(t, err.Error(), "booking 11")
	assert.Contains(t, err.Error(), "17:00-18:00")
}
