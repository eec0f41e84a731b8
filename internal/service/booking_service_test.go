package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

// testNow is a Monday; bookings in the tests land on the same day.
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*BookingService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	svc := NewBookingService(
		repository.NewBookingRepo(db),
		repository.NewFieldRepo(db),
		repository.NewPricingRuleRepo(db),
		repository.NewFieldServiceRepo(db),
		repository.NewPromotionRepo(db),
		5,
	)
	svc.now = func() time.Time { return testNow }

	return svc, mock, func() { db.Close() }
}

func mustRange(t *testing.T, start, end string) engine.TimeRange {
	t.Helper()
	r, err := engine.ParseRange(start, end)
	require.NoError(t, err)
	return r
}

// expectSubField queues the active sub-field lookup.
func expectSubField(mock sqlmock.Sqlmock, id, fieldID uint64, openMin, closeMin int, defaultPrice int64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_fields sf")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "field_id", "name", "open_min", "close_min", "default_price_cents", "is_active", "created_at", "updated_at",
		}).AddRow(id, fieldID, "Pitch", openMin, closeMin, defaultPrice, true, "2025-01-01 00:00:00", "2025-01-01 00:00:00"))
}

// expectNoRules queues an empty pricing rule set.
func expectNoRules(mock sqlmock.Sqlmock, subFieldID uint64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM pricing_rules")).
		WithArgs(subFieldID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sub_field_id", "day_of_week", "start_min", "end_min", "price_cents", "created_at", "updated_at",
		}))
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"booking_id", "start_min", "end_min"})
}

func bookingColumnsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "user_id", "sub_field_id", "booking_date", "subtotal_cents", "discount_cents",
		"total_cents", "promotion_id", "status", "payment_status", "primary_booking_id", "reminder_sent",
		"created_at", "updated_at",
	})
}

func addBookingRow(rows *sqlmock.Rows, id uint64, userID uint64, status string, primaryID interface{}) *sqlmock.Rows {
	return rows.AddRow(id, "code-"+time.Now().Format("150405"), userID, 10, testNow, 300000, 0,
		300000, nil, status, "UNPAID", primaryID, false, testNow, testNow)
}

func TestCreateBookingCollectsConflictsAcrossSubFields(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	evening := mustRange(t, "17:00", "18:00")

	// First sub-field is free, second is taken. Both are checked before
	// anything is written; no transaction ever starts.
	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())

	expectSubField(mock, 20, 1, 8*60, 22*60, 100000)
	expectNoRules(mock, 20)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(20), "2025-06-02").
		WillReturnRows(slotRows().AddRow(99, 17*60, 18*60))

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 1,
		Date:   testNow,
		SubFields: []SubFieldRequest{
			{SubFieldID: 10, Ranges: []engine.TimeRange{evening}},
			{SubFieldID: 20, Ranges: []engine.TimeRange{evening}},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSlotUnavailable)

	var conflict *engine.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, uint64(20), conflict.Conflicts[0].SubFieldID)
	assert.Equal(t, uint64(99), conflict.Conflicts[0].BookingID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingLosesCommitRace(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	evening := mustRange(t, "17:00", "18:00")

	// Fast path sees the slot free.
	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())

	mock.ExpectBegin()
	// Locked re-check still sees it free; the winner committed between
	// the lock release and our insert, so the unique key fires.
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '10-2025-06-02-1020' for key 'uniq_subfield_date_start'"))
	mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    1,
		Date:      testNow,
		SubFields: []SubFieldRequest{{SubFieldID: 10, Ranges: []engine.TimeRange{evening}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSlotUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingAppliesCappedPercentagePromo(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	// Two hours at the 7500.00 default: subtotal 3,000,000 cents; the 10%
	// promotion is capped at 100,000 cents.
	evening := mustRange(t, "17:00", "19:00")

	expectSubField(mock, 10, 1, 8*60, 22*60, 750000)
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())

	maxDiscount := int64(100000)
	minBooking := int64(200000)
	mock.ExpectQuery(regexp.QuoteMeta("FROM promotions WHERE code = ?")).
		WithArgs("SUMMER10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "discount_type", "discount_value", "max_discount_cents", "min_booking_cents",
			"usage_limit", "usage_count", "starts_at", "ends_at", "is_active", "created_at", "updated_at",
		}).AddRow(3, "SUMMER10", "PERCENTAGE", 10, maxDiscount, minBooking,
			100, 5, testNow.AddDate(0, -1, 0), testNow.AddDate(0, 1, 0), true, testNow, testNow))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(bookingColumnsRows().AddRow(7, "c0ffee", 1, 10, testNow, 3000000, 100000,
			2900000, 3, "PENDING", "UNPAID", nil, false, testNow, testNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnResult(sqlmock.NewResult(1, 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    1,
		Date:      testNow,
		SubFields: []SubFieldRequest{{SubFieldID: 10, Ranges: []engine.TimeRange{evening}}},
		PromoCode: "SUMMER10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000000), res.SubtotalCents)
	assert.Equal(t, int64(100000), res.DiscountCents)
	assert.Equal(t, int64(2900000), res.TotalCents)
	assert.Empty(t, res.PromoWarning)
	assert.Len(t, res.Primary.Slots, 4)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingIneligiblePromoIsAWarning(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	evening := mustRange(t, "17:00", "18:00")

	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())

	mock.ExpectQuery(regexp.QuoteMeta("FROM promotions WHERE code = ?")).
		WithArgs("GONE").
		WillReturnRows(sqlmock.NewRows([]string{"id"})) // no such code

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	res, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:    1,
		Date:      testNow,
		SubFields: []SubFieldRequest{{SubFieldID: 10, Ranges: []engine.TimeRange{evening}}},
		PromoCode: "GONE",
	})
	require.NoError(t, err)
	assert.Zero(t, res.DiscountCents)
	assert.NotEmpty(t, res.PromoWarning)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRequiredPromoFailsHard(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	evening := mustRange(t, "17:00", "18:00")

	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(10), "2025-06-02").
		WillReturnRows(slotRows())

	mock.ExpectQuery(regexp.QuoteMeta("FROM promotions WHERE code = ?")).
		WithArgs("GONE").
		WillReturnRows(sqlmock.NewRows([]string{"id"})) // no such code

	// No transaction: the request fails before anything is written.
	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:           1,
		Date:             testNow,
		SubFields:        []SubFieldRequest{{SubFieldID: 10, Ranges: []engine.TimeRange{evening}}},
		PromoCode:        "GONE",
		RequirePromotion: true,
	})
	var ineligible *engine.PromoIneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, engine.PromoNotFound, ineligible.Reason)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingCascadesToLinked(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE primary_booking_id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 8, 1, "PENDING", 7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("CANCELLED", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("CANCELLED", uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_slots")).
		WithArgs(uint64(7), uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := svc.CancelBooking(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingRejectsForeignUser(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	mock.ExpectRollback()

	err := svc.CancelBooking(context.Background(), 2, 7)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCompletedBookingIsIllegal(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "COMPLETED", nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE primary_booking_id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(bookingColumnsRows())
	mock.ExpectRollback()

	err := svc.CancelBooking(context.Background(), 1, 7)
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleConfirmedBookingIsIllegal(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "CONFIRMED", nil))
	mock.ExpectRollback()

	_, err := svc.RescheduleBooking(context.Background(), RescheduleInput{
		UserID:    1,
		BookingID: 7,
		Date:      testNow.AddDate(0, 0, 1),
		Ranges:    []engine.TimeRange{mustRange(t, "18:00", "19:00")},
	})
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleExcludesOwnSlots(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	newRange := mustRange(t, "18:00", "19:00")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	// The only overlapping slots on the date belong to booking 7 itself.
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(10), "2025-06-03").
		WillReturnRows(slotRows().AddRow(7, 18*60, 18*60+30).AddRow(7, 18*60+30, 19*60))
	expectNoRules(mock, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_services")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_slots")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET booking_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sum, err := svc.RescheduleBooking(context.Background(), RescheduleInput{
		UserID:    1,
		BookingID: 7,
		Date:      testNow.AddDate(0, 0, 1),
		Ranges:    []engine.TimeRange{newRange},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), sum.SubtotalCents)
	assert.Equal(t, "PENDING", sum.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleKeepsAddOnTotal(t *testing.T) {
	svc, mock, close := setupService(t)
	defer close()

	newRange := mustRange(t, "18:00", "19:00")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(addBookingRow(bookingColumnsRows(), 7, 1, "PENDING", nil))
	expectSubField(mock, 10, 1, 8*60, 22*60, 100000)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(uint64(10), "2025-06-03").
		WillReturnRows(slotRows())
	expectNoRules(mock, 10)
	// One attached add-on worth 100000 on top of 200000 in slots.
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_services")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(100000))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_slots")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET booking_date")).
		WithArgs("2025-06-03", int64(300000), int64(0), int64(300000), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sum, err := svc.RescheduleBooking(context.Background(), RescheduleInput{
		UserID:    1,
		BookingID: 7,
		Date:      testNow.AddDate(0, 0, 1),
		Ranges:    []engine.TimeRange{newRange},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300000), sum.SubtotalCents)
	assert.Equal(t, int64(300000), sum.TotalCents)
	require.NoError(t, mock.ExpectationsWereMet())
}
