package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func summer10() *Promotion {
	return &Promotion{
		ID:               1,
		Code:             "SUMMER10",
		DiscountType:     DiscountPercentage,
		DiscountValue:    10,
		MaxDiscountCents: int64Ptr(100000),
		MinBookingCents:  int64Ptr(200000),
		UsageLimit:       intPtr(100),
		UsageCount:       5,
		StartsAt:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:           time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC),
		IsActive:         true,
	}
}

var midSummer = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

func TestEvaluatePromotion_PercentageClampedToCap(t *testing.T) {
	// 10% of 3,000,000 is 300,000 but the cap holds it at 100,000
	discount, err := EvaluatePromotion(summer10(), 3000000, midSummer)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), discount)
}

func TestEvaluatePromotion_PercentageBelowCap(t *testing.T) {
	discount, err := EvaluatePromotion(summer10(), 500000, midSummer)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), discount)
}

func TestEvaluatePromotion_FixedNeverExceedsSubtotal(t *testing.T) {
	p := summer10()
	p.DiscountType = DiscountFixed
	p.DiscountValue = 500000
	p.MinBookingCents = nil
	discount, err := EvaluatePromotion(p, 300000, midSummer)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), discount)
}

func TestEvaluatePromotion_OutsideWindow(t *testing.T) {
	cases := map[string]time.Time{
		"before": time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		"after":  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	for name, asOf := range cases {
		discount, err := EvaluatePromotion(summer10(), 3000000, asOf)
		assert.Equal(t, int64(0), discount, name)
		var perr *PromoIneligibleError
		require.ErrorAs(t, err, &perr, name)
		assert.Equal(t, PromoOutsideDates, perr.Reason, name)
	}
}

func TestEvaluatePromotion_UsageExhausted(t *testing.T) {
	p := summer10()
	p.UsageCount = 100
	discount, err := EvaluatePromotion(p, 3000000, midSummer)
	assert.Equal(t, int64(0), discount)
	var perr *PromoIneligibleError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromoUsageLimit, perr.Reason)
}

func TestEvaluatePromotion_NoUsageLimitMeansUnlimited(t *testing.T) {
	p := summer10()
	p.UsageLimit = nil
	p.UsageCount = 100000
	_, err := EvaluatePromotion(p, 3000000, midSummer)
	assert.NoError(t, err)
}

func TestEvaluatePromotion_BelowMinimumSubtotal(t *testing.T) {
	discount, err := EvaluatePromotion(summer10(), 150000, midSummer)
	assert.Equal(t, int64(0), discount)
	var perr *PromoIneligibleError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromoMinSubtotal, perr.Reason)
}

func TestEvaluatePromotion_InactiveAndMissing(t *testing.T) {
	p := summer10()
	p.IsActive = false
	_, err := EvaluatePromotion(p, 3000000, midSummer)
	var perr *PromoIneligibleError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromoInactive, perr.Reason)

	_, err = EvaluatePromotion(nil, 3000000, midSummer)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromoNotFound, perr.Reason)
}

func TestEvaluatePromotion_UnknownDiscountTypeIsConfigError(t *testing.T) {
	p := summer10()
	p.DiscountType = "BOGOF"
	discount, err := EvaluatePromotion(p, 3000000, midSummer)
	assert.Equal(t, int64(0), discount)
	require.ErrorIs(t, err, ErrConfiguration)
	// Corrupt operator data must not read as caller ineligibility.
	var perr *PromoIneligibleError
	assert.False(t, errors.As(err, &perr))
}

func TestEvaluatePromotion_ChecksShortCircuitInOrder(t *testing.T) {
	// expired AND exhausted: the window check must fire first
	p := summer10()
	p.UsageCount = 100
	_, err := EvaluatePromotion(p, 3000000, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	var perr *PromoIneligibleError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromoOutsideDates, perr.Reason)
}
