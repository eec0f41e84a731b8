package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBookingMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewBookingRepo(db), mock, func() { db.Close() }
}

var bookingCols = []string{
	"id", "code", "user_id", "sub_field_id", "booking_date", "subtotal_cents", "discount_cents",
	"total_cents", "promotion_id", "status", "payment_status", "primary_booking_id",
	"reminder_sent", "created_at", "updated_at",
}

func TestCreateTxSelectsBackDefaults(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	now := time.Now().UTC()
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			42, "BK-TEST", 7, 3, date, 200000, 0, 200000, nil,
			"PENDING", "UNPAID", nil, false, now, now))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	b := &Booking{
		Code: "BK-TEST", UserID: 7, SubFieldID: 3, BookingDate: date,
		SubtotalCents: 200000, TotalCents: 200000, Status: "PENDING", PaymentStatus: "UNPAID",
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, b))
	assert.Equal(t, uint64(42), b.ID)
	assert.Equal(t, "PENDING", b.Status)
	assert.Nil(t, b.PromotionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSlotsBulkTxReportsDuplicate(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_slots")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '3-2025-06-09-540' for key 'uniq_subfield_date_start'"))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	err = repo.CreateSlotsBulkTx(context.Background(), tx, []BookingSlot{
		{BookingID: 42, SubFieldID: 3, BookingDate: date, StartMin: 540, EndMin: 570, PriceCents: 50000},
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveSlotsOrdersByStart(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots s")).
		WithArgs(uint64(3), "2025-06-09").
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "start_min", "end_min"}).
			AddRow(11, 540, 600).
			AddRow(12, 600, 660))

	slots, err := repo.ListActiveSlots(context.Background(), 3, date)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, uint64(11), slots[0].BookingID)
	assert.Equal(t, 600, slots[1].StartMin)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(999)).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestClaimReminderIsOneShot(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("SET reminder_sent = 1")).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET reminder_sent = 1")).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.ClaimReminder(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.ClaimReminder(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, won, "second claim must lose")
}

func TestGetDetailForUserEnforcesOwnership(t *testing.T) {
	repo, mock, close := setupBookingMock(t)
	defer close()

	detailCols := []string{
		"id", "code", "user_id", "sub_field_id", "sf_name", "field_id", "f_name",
		"booking_date", "subtotal_cents", "discount_cents", "total_cents",
		"status", "payment_status", "primary_booking_id",
	}

	// Foreign booking: the ownership predicate filters it out entirely.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ? AND b.user_id = ?")).
		WithArgs(uint64(42), uint64(8)).
		WillReturnRows(sqlmock.NewRows(detailCols))

	_, err := repo.GetDetailForUser(context.Background(), 42, 8)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	// Own booking comes back with its slots attached.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ? AND b.user_id = ?")).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(sqlmock.NewRows(detailCols).AddRow(
			42, "BK-TEST", 7, 3, "Pitch A", 1, "Riverside Arena",
			"2025-06-09", 200000, 0, 200000, "PENDING", "UNPAID", nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE booking_id IN (?)")).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "start_min", "end_min", "price_cents"}).
			AddRow(42, 540, 570, 100000).
			AddRow(42, 570, 600, 100000))

	d, err := repo.GetDetailForUser(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Arena", d.FieldName)
	require.Len(t, d.Slots, 2)
	assert.Equal(t, 570, d.Slots[1].StartMin)
	require.NoError(t, mock.ExpectationsWereMet())
}
