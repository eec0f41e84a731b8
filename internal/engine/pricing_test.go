package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday evening override at 150/unit over a 100/unit default, the reference
// pricing scenario for the whole engine.
func eveningIndex(t *testing.T) *RuleIndex {
	t.Helper()
	ix, err := NewRuleIndex(100, []Rule{
		{Weekday: time.Monday, Interval: mustRange(t, "17:00", "19:00"), PriceCents: 150},
	})
	require.NoError(t, err)
	return ix
}

func TestQuote_RuleWinsInsideInterval(t *testing.T) {
	ix := eveningIndex(t)
	lines, subtotal := ix.Quote(monday, []TimeRange{mustRange(t, "17:00", "18:00")})
	require.Len(t, lines, 2)
	assert.Equal(t, int64(150), lines[0].PriceCents)
	assert.Equal(t, int64(300), subtotal)
}

func TestQuote_DefaultOutsideInterval(t *testing.T) {
	ix := eveningIndex(t)
	_, subtotal := ix.Quote(monday, []TimeRange{mustRange(t, "16:00", "17:00")})
	assert.Equal(t, int64(200), subtotal)
}

func TestQuote_DefaultOnOtherWeekday(t *testing.T) {
	ix := eveningIndex(t)
	tuesday := monday.AddDate(0, 0, 1)
	_, subtotal := ix.Quote(tuesday, []TimeRange{mustRange(t, "17:00", "18:00")})
	assert.Equal(t, int64(200), subtotal)
}

func TestQuote_MixedRangesSumExactly(t *testing.T) {
	ix := eveningIndex(t)
	lines, subtotal := ix.Quote(monday, []TimeRange{
		mustRange(t, "16:00", "17:00"), // 2 x 100
		mustRange(t, "17:00", "18:00"), // 2 x 150
	})
	var sum int64
	for _, l := range lines {
		sum += l.PriceCents
	}
	assert.Equal(t, subtotal, sum)
	assert.Equal(t, int64(500), subtotal)
}

func TestQuote_BreakdownAlwaysSumsToSubtotal(t *testing.T) {
	ix, err := NewRuleIndex(325, []Rule{
		{Weekday: time.Monday, Interval: mustRange(t, "06:00", "09:00"), PriceCents: 275},
		{Weekday: time.Monday, Interval: mustRange(t, "17:00", "22:00"), PriceCents: 475},
	})
	require.NoError(t, err)
	lines, subtotal := ix.Quote(monday, []TimeRange{mustRange(t, "06:00", "22:00")})
	require.Len(t, lines, 32)
	var sum int64
	for _, l := range lines {
		sum += l.PriceCents
	}
	assert.Equal(t, subtotal, sum)
}

func TestPriceAt_IntervalBoundariesAreHalfOpen(t *testing.T) {
	ix := eveningIndex(t)
	assert.Equal(t, int64(100), ix.PriceAt(time.Monday, 990))  // 16:30 slot
	assert.Equal(t, int64(150), ix.PriceAt(time.Monday, 1020)) // 17:00 slot
	assert.Equal(t, int64(150), ix.PriceAt(time.Monday, 1110)) // 18:30 slot
	assert.Equal(t, int64(100), ix.PriceAt(time.Monday, 1140)) // 19:00 slot
}

func TestNewRuleIndex_RejectsOverlappingRules(t *testing.T) {
	_, err := NewRuleIndex(100, []Rule{
		{Weekday: time.Monday, Interval: mustRange(t, "10:00", "12:00"), PriceCents: 150},
		{Weekday: time.Monday, Interval: mustRange(t, "11:00", "13:00"), PriceCents: 200},
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	// same intervals on different weekdays are fine
	_, err = NewRuleIndex(100, []Rule{
		{Weekday: time.Monday, Interval: mustRange(t, "10:00", "12:00"), PriceCents: 150},
		{Weekday: time.Tuesday, Interval: mustRange(t, "11:00", "13:00"), PriceCents: 200},
	})
	assert.NoError(t, err)
}

func TestNewRuleIndex_RejectsBadData(t *testing.T) {
	_, err := NewRuleIndex(-1, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = NewRuleIndex(100, []Rule{{Weekday: time.Monday, Interval: TimeRange{StartMin: 615, EndMin: 660}, PriceCents: 10}})
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = NewRuleIndex(100, []Rule{{Weekday: 9, Interval: mustRange(t, "10:00", "11:00"), PriceCents: 10}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAddOnTotal(t *testing.T) {
	total := AddOnTotal([]AddOn{
		{ServiceID: 1, Quantity: 2, UnitPriceCents: 1500},
		{ServiceID: 2, Quantity: 1, UnitPriceCents: 5000},
	})
	assert.Equal(t, int64(8000), total)
	assert.Equal(t, int64(0), AddOnTotal(nil))
}
