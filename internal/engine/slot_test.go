package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end string) TimeRange {
	t.Helper()
	r, err := ParseRange(start, end)
	require.NoError(t, err)
	return r
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"17:00", 1020, false},
		{"24:00", 1440, false},
		{"24:30", 0, true},
		{"25:00", 0, true},
		{"10:61", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestOverlaps_BoundaryTouchingDoesNotConflict(t *testing.T) {
	a := mustRange(t, "17:00", "18:00")
	b := mustRange(t, "18:00", "19:00")
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestOverlaps_PartialAndContained(t *testing.T) {
	a := mustRange(t, "10:00", "12:00")
	assert.True(t, a.Overlaps(mustRange(t, "11:00", "13:00")))
	assert.True(t, a.Overlaps(mustRange(t, "10:30", "11:00")))
	assert.True(t, a.Overlaps(mustRange(t, "09:00", "13:00")))
	assert.False(t, a.Overlaps(mustRange(t, "08:00", "10:00")))
}

func TestValidate_RejectsUnalignedAndInverted(t *testing.T) {
	assert.Error(t, TimeRange{StartMin: 600, EndMin: 600}.Validate())
	assert.Error(t, TimeRange{StartMin: 660, EndMin: 600}.Validate())
	assert.Error(t, TimeRange{StartMin: 610, EndMin: 640}.Validate())
	assert.Error(t, TimeRange{StartMin: 600, EndMin: 615}.Validate())
	assert.NoError(t, TimeRange{StartMin: 600, EndMin: 630}.Validate())
}

func TestUnits_Decomposition(t *testing.T) {
	units := mustRange(t, "17:00", "19:00").Units()
	require.Len(t, units, 4)
	assert.Equal(t, mustRange(t, "17:00", "17:30"), units[0])
	assert.Equal(t, mustRange(t, "18:30", "19:00"), units[3])
}

func TestNormalizeRanges_SortsAndRejectsSelfOverlap(t *testing.T) {
	window := mustRange(t, "06:00", "23:00")

	out, err := NormalizeRanges([]TimeRange{
		mustRange(t, "18:00", "19:00"),
		mustRange(t, "16:00", "17:00"),
	}, window)
	require.NoError(t, err)
	assert.Equal(t, mustRange(t, "16:00", "17:00"), out[0])

	_, err = NormalizeRanges([]TimeRange{
		mustRange(t, "16:00", "18:00"),
		mustRange(t, "17:30", "19:00"),
	}, window)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNormalizeRanges_EnforcesWindow(t *testing.T) {
	window := mustRange(t, "08:00", "22:00")
	_, err := NormalizeRanges([]TimeRange{mustRange(t, "07:00", "09:00")}, window)
	assert.Error(t, err)
	_, err = NormalizeRanges([]TimeRange{mustRange(t, "21:00", "22:00")}, window)
	assert.NoError(t, err)
}

func TestSlotEnd(t *testing.T) {
	date := time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC) // truncated to the day
	end := SlotEnd(date, []TimeRange{
		mustRange(t, "09:00", "10:00"),
		mustRange(t, "17:00", "18:30"),
	})
	assert.Equal(t, time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC), end)
}
